// Package db is the optional run ledger: a SQLite database recording every
// aggregate and validate run together with its diagnostics.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Tools recorded in the ledger.
const (
	ToolAggregate = "aggregate"
	ToolValidate  = "validate"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// DB wraps a sql.DB connection to the SQLite database.
type DB struct {
	conn *sql.DB
}

// Run is one recorded invocation of a tool.
type Run struct {
	ID         string
	Tool       string // aggregate, validate
	Status     string // ok, failed
	StartedAt  string
	DurationMs int64
	Output     *string // written file, aggregate only
	Paths      int
	Tags       int
	Webhooks   int
	Documents  int // validate only
	Warnings   int
}

// Diagnostic is one warning or finding attached to a run.
type Diagnostic struct {
	ID      int64
	RunID   string
	Kind    string
	Subject string // module name or document path
	Message string
}

// Open creates a new DB connection and applies all pending migrations.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &DB{conn: conn}, nil
}

func migrate(conn *sql.DB) error {
	migrations, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		return err
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying *sql.DB for use by other packages if needed.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// --- Run Methods ---

const runColumns = `id, tool, status, started_at, duration_ms, output, paths, tags, webhooks, documents, warnings`

func scanRun(scanner interface{ Scan(...any) error }, r *Run) error {
	return scanner.Scan(&r.ID, &r.Tool, &r.Status, &r.StartedAt, &r.DurationMs, &r.Output, &r.Paths, &r.Tags, &r.Webhooks, &r.Documents, &r.Warnings)
}

// InsertRun stores a run and its diagnostics in one transaction and
// returns the run ID, generating one when r.ID is empty.
func (d *DB) InsertRun(r *Run, diags []Diagnostic) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return "", fmt.Errorf("begin insert run: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Tool, r.Status, r.StartedAt, r.DurationMs, r.Output, r.Paths, r.Tags, r.Webhooks, r.Documents, r.Warnings,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, diag := range diags {
		_, err := tx.Exec(
			`INSERT INTO diagnostics (run_id, kind, subject, message) VALUES (?, ?, ?, ?)`,
			r.ID, diag.Kind, diag.Subject, diag.Message,
		)
		if err != nil {
			return "", fmt.Errorf("insert diagnostic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return r.ID, nil
}

// GetRun retrieves a single run by ID. It returns nil, nil when no run has
// that ID.
func (d *DB) GetRun(id string) (*Run, error) {
	r := &Run{}
	row := d.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	if err := scanRun(row, r); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first. An empty tool lists every
// tool.
func (d *DB) ListRuns(tool string, limit int) ([]Run, error) {
	rows, err := d.conn.Query(
		`SELECT `+runColumns+` FROM runs WHERE (? = '' OR tool = ?) ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		tool, tool, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var r Run
		if err := scanRun(rows, &r); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListDiagnostics returns a run's diagnostics in the order they were
// recorded.
func (d *DB) ListDiagnostics(runID string) ([]Diagnostic, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, kind, subject, message FROM diagnostics WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list diagnostics: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var diags []Diagnostic
	for rows.Next() {
		var diag Diagnostic
		if err := rows.Scan(&diag.ID, &diag.RunID, &diag.Kind, &diag.Subject, &diag.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, diag)
	}
	return diags, rows.Err()
}

// PruneRuns deletes all but the newest keep runs and returns how many were
// removed. Diagnostics go with their run.
func (d *DB) PruneRuns(keep int) (int64, error) {
	res, err := d.conn.Exec(
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
