package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Config holds all runtime configuration for apidocs.
type Config struct {
	Root       string
	ModulesDir string
	SharedFile string
	Output     string
	JSONOutput string
	// Modules overrides the built-in module order when non-empty.
	Modules    []string
	PRDDir     string
	PRDPattern string
	Format     string
	HistoryDB  string
	Port       int
	Watch      bool
	Write      bool
	Debounce   time.Duration
	LogLevel   string
	LogFormat  string
}

// Load reads configuration from viper, which merges flag values, APIDOCS_*
// env vars, the optional config file and defaults (set up by the cobra
// command in cmd/apidocs). Relative paths are resolved against Root.
func Load() Config {
	root := viper.GetString("root")
	if root == "" {
		root = "."
	}
	return Config{
		Root:       root,
		ModulesDir: underRoot(root, viper.GetString("modules_dir")),
		SharedFile: viper.GetString("shared_file"),
		Output:     underRoot(root, viper.GetString("output")),
		JSONOutput: underRoot(root, viper.GetString("json_output")),
		Modules:    viper.GetStringSlice("modules"),
		PRDDir:     underRoot(root, viper.GetString("prd_dir")),
		PRDPattern: viper.GetString("prd_pattern"),
		Format:     viper.GetString("format"),
		HistoryDB:  underRoot(root, viper.GetString("history_db")),
		Port:       viper.GetInt("port"),
		Watch:      viper.GetBool("watch"),
		Write:      viper.GetBool("write"),
		Debounce:   viper.GetDuration("debounce"),
		LogLevel:   viper.GetString("log_level"),
		LogFormat:  viper.GetString("log_format"),
	}
}

// underRoot resolves p against root unless p is empty or absolute.
func underRoot(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
