// Package audit keeps the ledger of human override decisions. Overrides
// are advisory records layered on top of the AI review verdicts; they
// never drive a task's status by themselves.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS overrides (
	id         TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL,
	checkpoint TEXT NOT NULL,
	decision   TEXT NOT NULL,
	reviewer   TEXT NOT NULL,
	comment    TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_overrides_task ON overrides(task_id);
`

// Checkpoint identifies which review stage a human overrode.
type Checkpoint string

const (
	CheckpointManager   Checkpoint = "manager"
	CheckpointExecutive Checkpoint = "executive"
)

// Decision is the human reviewer's call.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Override is one human override record.
type Override struct {
	ID         string
	TaskID     string
	Checkpoint Checkpoint
	Decision   Decision
	Reviewer   string
	Comment    string
	CreatedAt  time.Time
}

// Ledger stores override records in a SQLite database.
type Ledger struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at dbPath and ensures the
// schema exists. The caller is responsible for calling Close.
func Open(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the underlying database connection.
func (l *Ledger) Close() error { return l.db.Close() }

// Record inserts an override and returns it with ID and timestamp set.
func (l *Ledger) Record(ctx context.Context, o Override) (Override, error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	o.CreatedAt = time.Now().UTC()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO overrides (id, task_id, checkpoint, decision, reviewer, comment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.TaskID, string(o.Checkpoint), string(o.Decision), o.Reviewer, o.Comment, o.CreatedAt,
	)
	if err != nil {
		return Override{}, fmt.Errorf("record override: %w", err)
	}
	return o, nil
}

// ForTask returns every override recorded for the task, oldest first.
func (l *Ledger) ForTask(ctx context.Context, taskID string) ([]Override, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, task_id, checkpoint, decision, reviewer, comment, created_at
		 FROM overrides WHERE task_id = ? ORDER BY created_at ASC`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Override
	for rows.Next() {
		var o Override
		var checkpoint, decision string
		if err := rows.Scan(&o.ID, &o.TaskID, &checkpoint, &decision, &o.Reviewer, &o.Comment, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		o.Checkpoint = Checkpoint(checkpoint)
		o.Decision = Decision(decision)
		out = append(out, o)
	}
	return out, rows.Err()
}
