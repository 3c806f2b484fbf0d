package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joestump/apidocs/internal/db"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded aggregate and validate runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			tool, _ := cmd.Flags().GetString("tool")
			verbose, _ := cmd.Flags().GetBool("diagnostics")

			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()
			if e.ledger == nil {
				return errors.New("no history database configured (set --history-db or APIDOCS_HISTORY_DB)")
			}

			runs, err := e.ledger.ListRuns(tool, limit)
			if err != nil {
				return err
			}
			return printRuns(cmd, e.ledger, runs, verbose)
		},
	}
	cmd.Flags().Int("limit", 20, "number of runs to show")
	cmd.Flags().String("tool", "", "only show runs of this tool (aggregate, validate)")
	cmd.Flags().Bool("diagnostics", false, "print each run's diagnostics")
	return cmd
}

func printRuns(cmd *cobra.Command, ledger *db.DB, runs []db.Run, verbose bool) error {
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOOL\tSTATUS\tWHEN\tDURATION\tSUMMARY")
	for _, r := range runs {
		when := r.StartedAt
		if t, err := time.Parse(time.RFC3339, r.StartedAt); err == nil {
			when = humanize.Time(t)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID[:min(8, len(r.ID))], r.Tool, r.Status, when,
			(time.Duration(r.DurationMs) * time.Millisecond).String(), summary(r))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !verbose {
		return nil
	}
	for _, r := range runs {
		diags, err := ledger.ListDiagnostics(r.ID)
		if err != nil {
			return err
		}
		if len(diags) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n%s:\n", r.ID)
		for _, d := range diags {
			fmt.Fprintf(out, "  %s\n", d.Message)
		}
	}
	return nil
}

func summary(r db.Run) string {
	if r.Tool == db.ToolValidate {
		return fmt.Sprintf("%s, %s",
			humanize.Comma(int64(r.Documents))+" "+plural(r.Documents, "document"),
			humanize.Comma(int64(r.Warnings))+" "+plural(r.Warnings, "finding"))
	}
	return fmt.Sprintf("%d paths, %d tags, %d webhooks, %d %s",
		r.Paths, r.Tags, r.Webhooks, r.Warnings, plural(r.Warnings, "warning"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
