package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joestump/apidocs/internal/prd"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check PRD documents for their required structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			report, err := e.svc.Validate()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch e.cfg.Format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			case "", "text":
				for _, line := range report.Lines() {
					fmt.Fprintln(out, line)
				}
			default:
				return fmt.Errorf("unknown format %q", e.cfg.Format)
			}

			if !report.Passed {
				return prd.ErrValidationFailed
			}
			return nil
		},
	}
	cmd.Flags().String("format", "text", "output format (text, json)")
	_ = viper.BindPFlag("format", cmd.Flags().Lookup("format"))
	return cmd
}
