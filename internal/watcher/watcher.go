// Package watcher triggers rebuilds when source documents change.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/joestump/apidocs/internal/logger"
)

// DefaultInclude matches the files a rebuild depends on.
var DefaultInclude = []string{"*.yaml", "*.yml", "*.md"}

// DefaultIgnore matches editor and VCS noise.
var DefaultIgnore = []string{".*", "*~", "*.swp", "*.tmp"}

// Config configures a Watcher.
type Config struct {
	Dirs     []string
	Include  []string // base-name patterns; empty means DefaultInclude
	Ignore   []string // base-name patterns; empty means DefaultIgnore
	Debounce time.Duration
}

// Watcher calls OnChange with the changed paths after each debounced burst
// of filesystem events.
type Watcher struct {
	cfg      Config
	onChange func(paths []string)
	log      *logger.Logger
}

func New(cfg Config, onChange func(paths []string), log *logger.Logger) *Watcher {
	if len(cfg.Include) == 0 {
		cfg.Include = DefaultInclude
	}
	if len(cfg.Ignore) == 0 {
		cfg.Ignore = DefaultIgnore
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{cfg: cfg, onChange: onChange, log: log.Named("watcher")}
}

// Relevant reports whether a change to path should trigger a rebuild.
func (w *Watcher) Relevant(path string) bool {
	base := filepath.Base(path)
	for _, pat := range w.cfg.Ignore {
		if ok, _ := doublestar.Match(pat, base); ok {
			return false
		}
	}
	for _, pat := range w.cfg.Include {
		if ok, _ := doublestar.Match(pat, base); ok {
			return true
		}
	}
	return false
}

// Run watches until ctx is cancelled. Directories that do not exist are
// an error.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close() //nolint:errcheck

	for _, dir := range w.cfg.Dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.log.Info("watching", "dir", dir)
	}

	deb := NewDebouncer(w.cfg.Debounce, w.onChange)
	defer deb.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename) {
				continue
			}
			if !w.Relevant(ev.Name) {
				continue
			}
			w.log.Debug("change", "path", ev.Name, "op", ev.Op.String())
			deb.Add(ev.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}
