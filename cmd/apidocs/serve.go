package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/joestump/apidocs/internal/watcher"
	"github.com/joestump/apidocs/internal/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest aggregate and build diagnostics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			if _, err := e.svc.Aggregate(e.cfg.Write); err != nil {
				e.log.Warn("initial build failed", "error", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := web.New(e.svc, e.svc.Hub(), e.log, web.Options{Port: e.cfg.Port, Write: e.cfg.Write})

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(ctx) })

			if e.cfg.Watch {
				dirs := []string{e.cfg.ModulesDir}
				if fi, err := os.Stat(e.cfg.PRDDir); err == nil && fi.IsDir() {
					dirs = append(dirs, e.cfg.PRDDir)
				}
				w := watcher.New(watcher.Config{Dirs: dirs, Debounce: e.cfg.Debounce}, func(paths []string) {
					e.log.Info("sources changed", "files", len(paths))
					e.rebuild(paths, e.cfg.Write)
				}, e.log)
				g.Go(func() error { return w.Run(ctx) })
			}

			return g.Wait()
		},
	}
	f := cmd.Flags()
	f.Int("port", 8088, "HTTP port")
	f.Bool("write", false, "write the output files on every rebuild")
	_ = viper.BindPFlag("port", f.Lookup("port"))
	_ = viper.BindPFlag("write", f.Lookup("write"))
	return cmd
}

// rebuild reruns the tools a batch of changed paths affects: module edits
// rerun the aggregate and PRD edits rerun validation. It reports which ran.
func (e *env) rebuild(paths []string, write bool) (aggregated, validated bool) {
	var modules, docs bool
	for _, p := range paths {
		if isPRDPath(e.cfg.PRDDir, p) {
			docs = true
		} else {
			modules = true
		}
	}

	if modules {
		aggregated = true
		if _, err := e.svc.Aggregate(write); err != nil {
			e.log.Warn("rebuild failed", "error", err)
		}
	}
	if docs {
		validated = true
		report, err := e.svc.Validate()
		if err != nil {
			e.log.Warn("validation failed to run", "error", err)
			return aggregated, validated
		}
		for _, res := range report.Results {
			for _, f := range res.Findings {
				e.log.Warn(f.String())
			}
		}
	}
	return aggregated, validated
}

func isPRDPath(prdDir, path string) bool {
	if strings.EqualFold(filepath.Ext(path), ".md") {
		return true
	}
	rel, err := filepath.Rel(prdDir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
