// Package store keeps per-conversation read marks in a local SQLite
// database so the conversation list can flag unread chats.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
	CREATE TABLE IF NOT EXISTS read_marks (
		client  TEXT PRIMARY KEY,
		read_at INTEGER NOT NULL
	)
`

type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the state database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// MarkRead records that everything in a conversation up to at has been
// seen. Marks never move backwards.
func (s *Store) MarkRead(clientID string, at time.Time) error {
	query := `
		INSERT INTO read_marks (client, read_at) VALUES (?, ?)
		ON CONFLICT(client) DO UPDATE SET read_at = MAX(read_at, excluded.read_at)
	`
	if _, err := s.db.Exec(query, clientID, at.UnixNano()); err != nil {
		return fmt.Errorf("failed to mark conversation as read: %w", err)
	}
	return nil
}

// ReadMarks returns the read mark of every known conversation.
func (s *Store) ReadMarks() (map[string]time.Time, error) {
	rows, err := s.db.Query(`SELECT client, read_at FROM read_marks`)
	if err != nil {
		return nil, fmt.Errorf("failed to query read marks: %w", err)
	}
	defer rows.Close()

	marks := make(map[string]time.Time)
	for rows.Next() {
		var client string
		var nanos int64
		if err := rows.Scan(&client, &nanos); err != nil {
			continue
		}
		marks[client] = time.Unix(0, nanos)
	}
	return marks, rows.Err()
}

// Unread reports whether a conversation whose last message is at last has
// anything newer than its read mark. Conversations never opened are unread.
func Unread(marks map[string]time.Time, clientID string, last time.Time) bool {
	if last.IsZero() {
		return false
	}
	mark, ok := marks[clientID]
	if !ok {
		return true
	}
	return last.After(mark)
}
