package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"photoutils/internal/models"
)

// Fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Storage is the operation journal: one row per batch run and one per file
// touched by it
type Storage struct {
	db     *sql.DB
	dbPath string
}

// NewStorage opens (and if needed creates) the journal at dbPath
func NewStorage(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	s := &Storage{db: db, dbPath: dbPath}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file location
func (s *Storage) Path() string {
	return s.dbPath
}

// Current schema version
const schemaVersion = 2

var migrations = []struct {
	version     int
	description string
	up          string
}{
	{
		version:     1,
		description: "Initial schema",
		up:          "", // Handled by base schema creation
	},
	{
		version:     2,
		description: "Add perceptual hash columns to operations",
		up: `
			ALTER TABLE operations ADD COLUMN source_hash TEXT DEFAULT '';
			ALTER TABLE operations ADD COLUMN result_hash TEXT DEFAULT '';
		`,
	},
}

func (s *Storage) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		command TEXT NOT NULL,
		args TEXT NOT NULL DEFAULT '',
		dry_run INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL DEFAULT '',
		processed INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		path TEXT NOT NULL,
		new_path TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		before_state TEXT NOT NULL DEFAULT '',
		after_state TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_operations_run_id ON operations(run_id);
	CREATE INDEX IF NOT EXISTS idx_operations_path ON operations(path);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := s.migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// migrate runs pending schema migrations
func (s *Storage) migrate() error {
	currentVersion := s.getSchemaVersion()

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if m.up == "" {
			s.setSchemaVersion(m.version)
			continue
		}

		if m.version == 2 && s.columnExists("operations", "source_hash") {
			s.setSchemaVersion(m.version)
			continue
		}

		if _, err := s.db.Exec(m.up); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.description, err)
		}

		s.setSchemaVersion(m.version)
	}

	return nil
}

func (s *Storage) getSchemaVersion() int {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0
	}
	return version
}

func (s *Storage) setSchemaVersion(version int) {
	s.db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, version)
}

func (s *Storage) columnExists(table, column string) bool {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?
	`, table, column).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// StartRun records the beginning of a batch run and returns it with a fresh ID
func (s *Storage) StartRun(command, args string, dryRun bool) (*models.Run, error) {
	run := &models.Run{
		ID:        uuid.NewString(),
		Command:   command,
		Args:      args,
		DryRun:    dryRun,
		StartedAt: time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (id, command, args, dry_run, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Command, run.Args, boolToInt(run.DryRun), formatTime(run.StartedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// FinishRun stores the final counters of run
func (s *Storage) FinishRun(run *models.Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	res, err := s.db.Exec(`
		UPDATE runs SET finished_at = ?, processed = ?, failed = ? WHERE id = ?
	`, formatTime(run.FinishedAt), run.Processed, run.Failed, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", run.ID)
	}
	return nil
}

// RecordOperation appends op to the journal and sets its ID
func (s *Storage) RecordOperation(op *models.Operation) error {
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(`
		INSERT INTO operations (run_id, path, new_path, action, before_state, after_state, status, error, source_hash, result_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		op.RunID,
		op.Path,
		op.NewPath,
		string(op.Action),
		op.Before,
		op.After,
		string(op.Status),
		op.Error,
		op.SourceHash,
		op.ResultHash,
		formatTime(op.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert operation for %s: %w", op.Path, err)
	}
	op.ID, _ = res.LastInsertId()
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Storage) ListRuns(limit int) ([]*models.Run, error) {
	query := `
		SELECT id, command, args, dry_run, started_at, finished_at, processed, failed
		FROM runs
		ORDER BY started_at DESC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run := &models.Run{}
		var dryRun int
		var startedAt, finishedAt string
		err := rows.Scan(
			&run.ID,
			&run.Command,
			&run.Args,
			&dryRun,
			&startedAt,
			&finishedAt,
			&run.Processed,
			&run.Failed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		run.DryRun = dryRun == 1
		run.StartedAt = parseTime(startedAt)
		run.FinishedAt = parseTime(finishedAt)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRun returns the run with the given ID, or one whose ID starts with it
func (s *Storage) GetRun(id string) (*models.Run, error) {
	runs, err := s.ListRuns(0)
	if err != nil {
		return nil, err
	}
	var found *models.Run
	for _, run := range runs {
		if run.ID == id {
			return run, nil
		}
		if len(id) > 0 && len(run.ID) >= len(id) && run.ID[:len(id)] == id {
			if found != nil {
				return nil, fmt.Errorf("ambiguous run ID prefix: %s", id)
			}
			found = run
		}
	}
	if found == nil {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	return found, nil
}

// ListOperations returns the operations of a run in the order they happened
func (s *Storage) ListOperations(runID string) ([]*models.Operation, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, path, new_path, action, before_state, after_state, status, error, source_hash, result_hash, created_at
		FROM operations
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var ops []*models.Operation
	for rows.Next() {
		op := &models.Operation{}
		var action, status, createdAt string
		var sourceHash, resultHash sql.NullString
		err := rows.Scan(
			&op.ID,
			&op.RunID,
			&op.Path,
			&op.NewPath,
			&action,
			&op.Before,
			&op.After,
			&status,
			&op.Error,
			&sourceHash,
			&resultHash,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		op.Action = models.Action(action)
		op.Status = models.Status(status)
		op.SourceHash = sourceHash.String
		op.ResultHash = resultHash.String
		op.CreatedAt = parseTime(createdAt)
		ops = append(ops, op)
	}

	return ops, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(timeLayout, s)
	return t
}
