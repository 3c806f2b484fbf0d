package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joestump/apidocs/internal/build"
	"github.com/joestump/apidocs/internal/watcher"
)

func newAggregateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate",
		Short: "Merge shared.yaml and the module specs into one OpenAPI document",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
			b, err := e.svc.Aggregate(true)
			if !e.cfg.Watch {
				if err != nil {
					return err
				}
				printAggregate(stdout, stderr, b)
				return nil
			}
			if err != nil {
				fmt.Fprintln(stderr, "Error:", err)
			} else {
				printAggregate(stdout, stderr, b)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := watcher.New(watcher.Config{
				Dirs:     []string{e.cfg.ModulesDir},
				Debounce: e.cfg.Debounce,
			}, func(paths []string) {
				e.log.Info("modules changed", "files", len(paths))
				b, err := e.svc.Aggregate(true)
				if err != nil {
					fmt.Fprintln(stderr, "Error:", err)
					return
				}
				printAggregate(stdout, stderr, b)
			}, e.log)
			return w.Run(ctx)
		},
	}
}

// printAggregate writes the warnings of a build to stderr in the order they
// occurred, then the confirmation line to stdout.
func printAggregate(stdout, stderr io.Writer, b *build.Build) {
	for _, line := range b.Report.Warnings() {
		fmt.Fprintln(stderr, line)
	}
	fmt.Fprintln(stdout, b.Report.Confirmation())
}
