package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joestump/apidocs/internal/config"
	"github.com/joestump/apidocs/internal/prd"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		// A failed validation has already printed its verdict.
		if !errors.Is(err, prd.ErrValidationFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "apidocs",
		Short:         "Aggregate OpenAPI module specs and validate PRD documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfigFile()
		},
	}

	f := rootCmd.PersistentFlags()
	f.String("root", ".", "repository root; relative paths resolve against it")
	f.String("config", "", "config file (default <root>/.apidocs.yaml when present)")
	f.String("modules-dir", "docs/api/modules", "directory holding shared.yaml and the module specs")
	f.String("shared-file", "shared.yaml", "file name of the shared document inside the modules directory")
	f.String("output", "docs/api/openapi.yaml", "aggregate output path")
	f.String("json-output", "", "also write the aggregate as JSON to this path")
	f.StringSlice("modules", nil, "module files in merge order (default: the built-in module list)")
	f.String("prd-dir", "docs/prd", "directory holding the PRD documents")
	f.String("prd-pattern", prd.DefaultPattern, "glob selecting PRD documents inside the PRD directory")
	f.String("history-db", "", "record runs in this SQLite database")
	f.Bool("watch", false, "rebuild when module files change")
	f.Duration("debounce", defaultDebounce, "quiet period before a watched change triggers a rebuild")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.String("log-format", "console", "log format (console, json)")

	// Viper keys use underscores so they match the env var suffix after
	// stripping the APIDOCS_ prefix.
	bindFlag := func(viperKey, flagName string) {
		_ = viper.BindPFlag(viperKey, f.Lookup(flagName))
	}
	bindFlag("root", "root")
	bindFlag("config", "config")
	bindFlag("modules_dir", "modules-dir")
	bindFlag("shared_file", "shared-file")
	bindFlag("output", "output")
	bindFlag("json_output", "json-output")
	bindFlag("modules", "modules")
	bindFlag("prd_dir", "prd-dir")
	bindFlag("prd_pattern", "prd-pattern")
	bindFlag("history_db", "history-db")
	bindFlag("watch", "watch")
	bindFlag("debounce", "debounce")
	bindFlag("log_level", "log-level")
	bindFlag("log_format", "log-format")

	viper.SetEnvPrefix("APIDOCS")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	rootCmd.AddCommand(
		newAggregateCmd(),
		newValidateCmd(),
		newServeCmd(),
		newMCPCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfigFile merges the optional YAML config file. An explicit --config
// must exist; the default <root>/.apidocs.yaml is skipped when absent.
func loadConfigFile() error {
	path := viper.GetString("config")
	explicit := path != ""
	if !explicit {
		path = filepath.Join(viper.GetString("root"), ".apidocs.yaml")
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "apidocs %s\n", config.Version)
		},
	}
}
