package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zero-day-ai/bimq/query"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	seq               INTEGER PRIMARY KEY AUTOINCREMENT,
	id                TEXT NOT NULL UNIQUE,
	ts                TEXT NOT NULL,
	session_id        TEXT NOT NULL,
	query             TEXT NOT NULL,
	generated_query   TEXT NOT NULL,
	attempt           INTEGER NOT NULL,
	decision          TEXT NOT NULL,
	error_explanation TEXT NOT NULL,
	evaluator         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_entries(session_id);
`

// SQLiteSink stores entries in the audit_entries table of a SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Append implements Sink.
func (s *SQLiteSink) Append(ctx context.Context, e Entry) error {
	e = e.Stamped()
	q, err := json.Marshal(e.Structured)
	if err != nil {
		return fmt.Errorf("marshal generated query: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_entries (id, ts, session_id, query, generated_query, attempt, decision, error_explanation, evaluator)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC().Format(time.RFC3339Nano), e.SessionID, e.Query, string(q),
		e.Attempt, e.Decision, e.Explanation, e.Evaluator,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Entries returns entries in insertion order. A non-empty sessionID limits
// the result to that session.
func (s *SQLiteSink) Entries(ctx context.Context, sessionID string) ([]Entry, error) {
	stmt := `SELECT id, ts, session_id, query, generated_query, attempt, decision, error_explanation, evaluator
		FROM audit_entries`
	var args []any
	if sessionID != "" {
		stmt += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	stmt += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			ts, gq string
		)
		if err := rows.Scan(&e.ID, &ts, &e.SessionID, &e.Query, &gq, &e.Attempt, &e.Decision, &e.Explanation, &e.Evaluator); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse timestamp of %s: %w", e.ID, err)
		}
		if e.Structured, err = query.Parse([]byte(gq)); err != nil {
			return nil, fmt.Errorf("parse generated query of %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of stored entries.
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}
