// Package sqlite persists conversation turns and the action log in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_project ON turns(project_id, id);

CREATE TABLE IF NOT EXISTS actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id TEXT NOT NULL,
	action TEXT NOT NULL,
	path TEXT NOT NULL,
	status TEXT NOT NULL,
	message TEXT NOT NULL,
	error_type TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_actions_project ON actions(project_id, id);
`

// ActionRecord is one finished action from the log.
type ActionRecord struct {
	ID        int64             `json:"id"`
	ProjectID string            `json:"projectId"`
	Kind      models.ActionKind `json:"action"`
	Path      string            `json:"filePath"`
	Status    models.Status     `json:"status"`
	Message   string            `json:"message"`
	ErrorType models.ErrorType  `json:"errorType,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Store implements models.HistoryProvider, models.TurnRecorder and
// models.Reporter.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has a single writer, and each in-memory
	// connection would be a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// FetchRecentTurns returns the last limit turns of a project, oldest first.
func (s *Store) FetchRecentTurns(ctx context.Context, projectID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content FROM (
			SELECT id, role, content FROM turns
			WHERE project_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) AppendTurn(ctx context.Context, projectID string, m models.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (project_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		projectID, m.Role, m.Content, s.now().UTC())
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// Report logs finished actions. Pending and run-level reports are ignored.
func (s *Store) Report(ctx context.Context, r models.Report) error {
	if !r.IsAction() || r.Status == models.StatusPending {
		return nil
	}
	ts := r.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO actions (project_id, action, path, status, message, error_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ProjectID, string(r.Kind), r.Path, string(r.Status), r.Message, string(r.ErrorType), ts.UTC())
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// Actions returns the most recent limit actions of a project, oldest first.
func (s *Store) Actions(ctx context.Context, projectID string, limit int) ([]ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, action, path, status, message, error_type, created_at FROM (
			SELECT * FROM actions
			WHERE project_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		var (
			a                       ActionRecord
			kind, status, errorType string
		)
		if err := rows.Scan(&a.ID, &a.ProjectID, &kind, &a.Path, &status, &a.Message, &errorType, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		a.Kind = models.ActionKind(kind)
		a.Status = models.Status(status)
		a.ErrorType = models.ErrorType(errorType)
		out = append(out, a)
	}
	return out, rows.Err()
}
