package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joestump/apidocs/internal/mcpserver"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Expose aggregate_openapi, validate_prd and list_tags as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := mcpserver.NewServer(e.svc, e.log)
			return s.Serve(ctx, os.Stdin, os.Stdout, e.log.Named("mcp").StdLog())
		},
	}
}
