// Package history persists finished run reports to SQLite for later
// inspection. The store is optional: without a configured path the
// orchestrator persists nothing beyond the run summary file.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/foreman/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// RunRecord is a stored run as read back from the database.
type RunRecord struct {
	RunID         string
	SpecFile      string
	OverallStatus string
	OpenIssues    []string
	StartedAt     time.Time
	DurationSecs  int64
}

// PhaseRecord is a stored phase terminal state.
type PhaseRecord struct {
	Position      int
	Name          string
	Kind          string
	HardBlocking  bool
	Executed      bool
	Status        string
	Iterations    int
	MaxIterations int
	LastFailure   string
}

// Store manages the SQLite database for run history
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new Store instance and initializes the database
func NewStore(dbPath string) (*Store, error) {
	// Ensure parent directory exists for file-based databases
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout first so subsequent operations wait on locks
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores a finished run report with its phase terminals.
func (s *Store) RecordRun(ctx context.Context, report *models.RunReport) error {
	issuesJSON := "[]"
	if len(report.OpenIssues) > 0 {
		data, err := json.Marshal(report.OpenIssues)
		if err != nil {
			return fmt.Errorf("marshal open issues: %w", err)
		}
		issuesJSON = string(data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, spec_file, overall_status, open_issues, started_at, duration_seconds)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.SpecFile,
		report.OverallStatus,
		issuesJSON,
		report.StartedAt.UTC(),
		int64(report.Duration.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, phase := range report.Phases {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_phases (run_id, position, name, kind, hard_blocking, executed, status, iterations, max_iterations, last_failure)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.RunID,
			i,
			phase.Spec.Name,
			phase.Spec.Kind,
			phase.Spec.HardBlocking,
			phase.Executed,
			phase.StatusLabel(),
			phase.Loop.Iterations,
			phase.Loop.MaxIterations,
			phase.LastFailure(),
		)
		if err != nil {
			return fmt.Errorf("insert phase %s: %w", phase.Spec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run record: %w", err)
	}
	return nil
}

// GetRun reads a stored run by run ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, spec_file, overall_status, open_issues, started_at, duration_seconds
		 FROM runs WHERE run_id = ?`, runID)

	var rec RunRecord
	var issuesJSON string
	if err := row.Scan(&rec.RunID, &rec.SpecFile, &rec.OverallStatus, &issuesJSON, &rec.StartedAt, &rec.DurationSecs); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("query run: %w", err)
	}

	if err := json.Unmarshal([]byte(issuesJSON), &rec.OpenIssues); err != nil {
		return nil, fmt.Errorf("unmarshal open issues: %w", err)
	}
	return &rec, nil
}

// GetPhases reads the stored phase terminals for a run, in execution order.
func (s *Store) GetPhases(ctx context.Context, runID string) ([]PhaseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, name, kind, hard_blocking, executed, status, iterations, max_iterations, last_failure
		 FROM run_phases WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query phases: %w", err)
	}
	defer rows.Close()

	var phases []PhaseRecord
	for rows.Next() {
		var p PhaseRecord
		if err := rows.Scan(&p.Position, &p.Name, &p.Kind, &p.HardBlocking, &p.Executed, &p.Status, &p.Iterations, &p.MaxIterations, &p.LastFailure); err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		phases = append(phases, p)
	}
	return phases, rows.Err()
}

// ListRuns returns the most recent runs, newest first. A non-empty
// specFile narrows the listing to that spec.
func (s *Store) ListRuns(ctx context.Context, specFile string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, spec_file, overall_status, open_issues, started_at, duration_seconds
		 FROM runs WHERE (? = '' OR spec_file = ?) ORDER BY id DESC LIMIT ?`, specFile, specFile, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var issuesJSON string
		if err := rows.Scan(&rec.RunID, &rec.SpecFile, &rec.OverallStatus, &issuesJSON, &rec.StartedAt, &rec.DurationSecs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(issuesJSON), &rec.OpenIssues); err != nil {
			return nil, fmt.Errorf("unmarshal open issues: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}
