// Package audit provides a SQLite-backed append-only log of graph
// mutations, so the history of a workspace survives process restarts.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS mutations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	graph      TEXT NOT NULL,
	op         TEXT NOT NULL,
	subject    TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_mutations_graph ON mutations(graph);
`

// Entry is one recorded mutation.
type Entry struct {
	ID        int64     `json:"id"`
	Graph     string    `json:"graph"`
	Op        string    `json:"op"`
	Subject   string    `json:"subject,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Log wraps a sql.DB with audit-specific operations.
type Log struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Log, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("audit: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("audit: apply schema: %w", err)
	}
	return &Log{conn: conn}, nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	return l.conn.Close()
}

// Record appends one mutation entry.
func (l *Log) Record(graph, op, subject, detail string) error {
	_, err := l.conn.Exec(
		`INSERT INTO mutations (graph, op, subject, detail) VALUES (?, ?, ?, ?)`,
		graph, op, subject, detail,
	)
	if err != nil {
		return fmt.Errorf("audit: record: %w", err)
	}
	return nil
}

// Recent returns the newest entries, optionally filtered to one graph.
// A limit <= 0 defaults to 50.
func (l *Log) Recent(graph string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if graph == "" {
		rows, err = l.conn.Query(
			`SELECT id, graph, op, subject, detail, created_at FROM mutations ORDER BY id DESC LIMIT ?`, limit)
	} else {
		rows, err = l.conn.Query(
			`SELECT id, graph, op, subject, detail, created_at FROM mutations WHERE graph = ? ORDER BY id DESC LIMIT ?`, graph, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("audit: recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Graph, &e.Op, &e.Subject, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
