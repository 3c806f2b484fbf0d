package main

import (
	"fmt"
	"time"

	"github.com/joestump/apidocs/internal/build"
	"github.com/joestump/apidocs/internal/config"
	"github.com/joestump/apidocs/internal/db"
	"github.com/joestump/apidocs/internal/hub"
	"github.com/joestump/apidocs/internal/logger"
	"github.com/joestump/apidocs/internal/openapi"
	"github.com/joestump/apidocs/internal/prd"
)

const defaultDebounce = 300 * time.Millisecond

// env is what every subcommand needs.
type env struct {
	cfg    config.Config
	log    *logger.Logger
	ledger *db.DB
	svc    *build.Service
}

func setup() (*env, error) {
	cfg := config.Load()
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: log}
	if cfg.HistoryDB != "" {
		e.ledger, err = db.Open(cfg.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
	}

	agg := openapi.New(cfg.ModulesDir)
	if cfg.SharedFile != "" {
		agg.Shared = cfg.SharedFile
	}
	if len(cfg.Modules) > 0 {
		agg.Modules = cfg.Modules
	}
	val := prd.New(cfg.PRDDir)
	if cfg.PRDPattern != "" {
		val.Pattern = cfg.PRDPattern
	}

	e.svc = build.New(build.Options{
		Aggregator: agg,
		Validator:  val,
		Hub:        hub.New(),
		Ledger:     e.ledger,
		Logger:     log,
		Output:     cfg.Output,
		JSONOutput: cfg.JSONOutput,
	})
	return e, nil
}

func (e *env) Close() {
	if e.ledger != nil {
		_ = e.ledger.Close()
	}
	e.log.Sync()
}
