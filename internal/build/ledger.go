package build

import (
	"time"

	"github.com/joestump/apidocs/internal/db"
	"github.com/joestump/apidocs/internal/openapi"
	"github.com/joestump/apidocs/internal/prd"
)

// recordAggregate stores b in the ledger. Ledger failures are logged and
// never fail the build.
func (s *Service) recordAggregate(b *Build, report *openapi.Report) {
	if s.opts.Ledger == nil {
		return
	}
	run := &db.Run{
		Tool:       db.ToolAggregate,
		Status:     db.StatusOK,
		StartedAt:  b.StartedAt.UTC().Format(timeLayout),
		DurationMs: b.Duration.Milliseconds(),
	}
	var diags []db.Diagnostic
	if report == nil {
		run.Status = db.StatusFailed
		diags = append(diags, db.Diagnostic{Kind: "error", Message: b.Error})
	} else {
		if report.Output != "" {
			out := report.Output
			run.Output = &out
		}
		run.Paths = report.Paths
		run.Tags = len(report.Tags)
		run.Webhooks = report.Webhooks
		run.Warnings = len(report.Diagnostics)
		for _, d := range report.Diagnostics {
			diags = append(diags, db.Diagnostic{Kind: string(d.Kind), Subject: d.Module, Message: d.String()})
		}
	}
	id, err := s.opts.Ledger.InsertRun(run, diags)
	if err != nil {
		s.log.Warn("record build", "build", b.ID, "error", err)
		return
	}
	b.RunID = id
}

func (s *Service) recordValidate(started time.Time, report *prd.Report) {
	if s.opts.Ledger == nil {
		return
	}
	run := &db.Run{
		Tool:       db.ToolValidate,
		Status:     db.StatusFailed,
		StartedAt:  started.UTC().Format(timeLayout),
		DurationMs: time.Since(started).Milliseconds(),
	}
	var diags []db.Diagnostic
	if report != nil {
		if report.Passed {
			run.Status = db.StatusOK
		}
		run.Documents = len(report.Results)
		for _, res := range report.Results {
			for _, f := range res.Findings {
				diags = append(diags, db.Diagnostic{Kind: string(f.Check), Subject: f.Path, Message: f.String()})
			}
		}
		run.Warnings = len(diags)
	}
	if _, err := s.opts.Ledger.InsertRun(run, diags); err != nil {
		s.log.Warn("record validation", "error", err)
	}
}
