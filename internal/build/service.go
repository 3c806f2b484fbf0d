// Package build runs aggregation and validation passes on behalf of the
// CLI, the preview server and the MCP server. It numbers builds, keeps the
// latest aggregate, streams each build's diagnostics through the hub and
// records runs in the ledger when one is configured.
package build

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/joestump/apidocs/internal/db"
	"github.com/joestump/apidocs/internal/hub"
	"github.com/joestump/apidocs/internal/logger"
	"github.com/joestump/apidocs/internal/openapi"
	"github.com/joestump/apidocs/internal/prd"
)

// retainBuilds is how many finished build streams the hub keeps for replay.
const retainBuilds = 20

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Options configures a Service. Aggregator and Validator are required.
type Options struct {
	Aggregator *openapi.Aggregator
	Validator  *prd.Validator
	Hub        *hub.Hub
	Ledger     *db.DB // optional
	Logger     *logger.Logger
	Output     string // YAML destination when writing
	JSONOutput string // optional JSON destination when writing
}

// Build is one numbered aggregation pass.
type Build struct {
	ID        int             `json:"id"`
	RunID     string          `json:"run_id,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Report    *openapi.Report `json:"report,omitempty"`
	Error     string          `json:"error,omitempty"`

	doc *yaml.Node
}

// Service serializes builds and holds the most recent successful one.
type Service struct {
	opts Options
	hub  *hub.Hub
	log  *logger.Logger

	mu     sync.Mutex
	next   int
	latest *Build
}

// New returns a Service. A nil Hub or Logger is replaced with a private hub
// or a no-op logger.
func New(opts Options) *Service {
	h := opts.Hub
	if h == nil {
		h = hub.New()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{opts: opts, hub: h, log: log.Named("build")}
}

// Hub returns the hub build events are published to.
func (s *Service) Hub() *hub.Hub { return s.hub }

// Aggregate runs one build. When write is true the aggregate is written to
// the configured outputs and the report's Output names the YAML file. A
// failed build is returned alongside the error and does not replace the
// latest successful build.
func (s *Service) Aggregate(write bool) (*Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	b := &Build{ID: s.next, StartedAt: time.Now()}
	s.hub.Open(b.ID)
	s.publish(b.ID, "status", "", fmt.Sprintf("build %d started", b.ID))
	defer func() {
		s.hub.Close(b.ID)
		s.hub.Retain(retainBuilds)
	}()

	res, err := s.opts.Aggregator.Build()
	if err == nil && write {
		err = s.write(res)
	}
	b.Duration = time.Since(b.StartedAt)
	if err != nil {
		b.Error = err.Error()
		s.publish(b.ID, "error", "", b.Error)
		s.recordAggregate(b, nil)
		s.log.Error("build failed", "build", b.ID, "error", err)
		return b, err
	}

	b.Report = res.Report
	b.doc = res.Document
	for _, d := range res.Report.Diagnostics {
		s.publish(b.ID, string(d.Kind), d.Module, d.String())
	}
	s.publish(b.ID, "status", "", fmt.Sprintf("build %d complete: %d paths, %d tags, %d webhooks",
		b.ID, res.Report.Paths, len(res.Report.Tags), res.Report.Webhooks))
	s.recordAggregate(b, res.Report)
	s.latest = b

	s.log.Info("build complete",
		"build", b.ID,
		"paths", res.Report.Paths,
		"tags", len(res.Report.Tags),
		"warnings", len(res.Report.Diagnostics),
		"duration", b.Duration,
	)
	return b, nil
}

func (s *Service) write(res *openapi.Result) error {
	if err := openapi.WriteYAML(s.opts.Output, res.Document); err != nil {
		return err
	}
	res.Report.Output = s.opts.Output
	if fi, err := os.Stat(s.opts.Output); err == nil {
		s.log.Debug("wrote aggregate", "path", s.opts.Output, "size", humanize.Bytes(uint64(fi.Size())))
	}

	if s.opts.JSONOutput != "" {
		if err := openapi.WriteJSON(s.opts.JSONOutput, res.Document); err != nil {
			return err
		}
		s.log.Debug("wrote aggregate json", "path", s.opts.JSONOutput)
	}
	return nil
}

func (s *Service) publish(build int, kind, subject, msg string) {
	s.hub.Publish(hub.Event{Build: build, Kind: kind, Subject: subject, Message: msg})
}

// Latest returns the most recent successful build, or nil before the first.
func (s *Service) Latest() *Build {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// LatestYAML renders the latest aggregate as YAML.
func (s *Service) LatestYAML() ([]byte, error) {
	b := s.Latest()
	if b == nil {
		return nil, ErrNoBuild
	}
	var buf bytes.Buffer
	if err := openapi.EncodeYAML(&buf, b.doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LatestJSON renders the latest aggregate as JSON.
func (s *Service) LatestJSON() ([]byte, error) {
	b := s.Latest()
	if b == nil {
		return nil, ErrNoBuild
	}
	return openapi.EncodeJSON(b.doc)
}

// Validate runs the PRD validator and records the run.
func (s *Service) Validate() (*prd.Report, error) {
	started := time.Now()
	report, err := s.opts.Validator.Run()
	if err != nil {
		s.recordValidate(started, nil)
		return nil, err
	}
	s.recordValidate(started, report)
	s.log.Info("validation complete", "documents", len(report.Results), "passed", report.Passed)
	return report, nil
}
