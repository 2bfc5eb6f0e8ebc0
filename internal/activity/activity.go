// Package activity records the outcome of every dashboard operation in SQLite.
package activity

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/folio/internal/panel"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS activity (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	operator   TEXT NOT NULL DEFAULT '',
	panel      TEXT NOT NULL,
	op         TEXT NOT NULL,
	record_id  TEXT NOT NULL DEFAULT '',
	ok         INTEGER NOT NULL,
	message    TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_activity_created ON activity(created_at);
CREATE INDEX IF NOT EXISTS idx_activity_panel ON activity(panel);
`

const defaultLimit = 50

// Entry is one recorded operation.
type Entry struct {
	ID        int64     `json:"id"`
	Operator  string    `json:"operator"`
	Panel     string    `json:"panel"`
	Op        string    `json:"op"`
	RecordID  string    `json:"recordId,omitempty"`
	OK        bool      `json:"ok"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Log wraps the activity database.
type Log struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Log, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("activity: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("activity: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("activity: apply schema: %w", err)
	}
	return &Log{conn: conn}, nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	return l.conn.Close()
}

// Record appends an entry. A zero CreatedAt is stamped with the current time.
func (l *Log) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := l.conn.ExecContext(ctx, `
		INSERT INTO activity (operator, panel, op, record_id, ok, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Operator, e.Panel, e.Op, e.RecordID, e.OK, e.Message, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("activity: insert: %w", err)
	}
	return nil
}

// Recent returns the newest entries first, optionally restricted to one panel.
func (l *Log) Recent(ctx context.Context, panel string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	q := `SELECT id, operator, panel, op, record_id, ok, message, created_at FROM activity`
	args := []any{}
	if panel != "" {
		q += ` WHERE panel = ?`
		args = append(args, panel)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("activity: recent: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Operator, &e.Panel, &e.Op, &e.RecordID, &e.OK, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Observer records panel outcomes for one operator. Successful loads are
// skipped since the inbox poll would flood the log.
func (l *Log) Observer(operator string, logger *slog.Logger) panel.Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return panel.ObserverFunc(func(ctx context.Context, ev panel.Event) {
		if ev.Op == panel.OpLoad && ev.OK {
			return
		}
		// The request context may already be done once the response is written.
		err := l.Record(context.WithoutCancel(ctx), Entry{
			Operator: operator,
			Panel:    ev.Panel,
			Op:       ev.Op,
			RecordID: ev.RecordID,
			OK:       ev.OK,
			Message:  ev.Message,
		})
		if err != nil {
			logger.Warn("record activity failed", slog.String("error", err.Error()))
		}
	})
}
