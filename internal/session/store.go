// Package session persists device-local key/value state in SQLite: session
// identifiers, cached profile JSON, onboarding flags. Values are opaque
// strings with no schema versioning; authoritative state lives in the
// backend.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a key has no value for the chat.
var ErrNotFound = errors.New("session key not found")

type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to session database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS session_values (
            chat_id INTEGER NOT NULL,
            key TEXT NOT NULL,
            value TEXT NOT NULL,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (chat_id, key)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_session_values_chat_id ON session_values(chat_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Get returns the value for a key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, chatID int64, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE chat_id = ? AND key = ?`, chatID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("session get %s: %w", key, err)
	}
	return value, nil
}

// Set writes a key, replacing any previous value.
func (s *Store) Set(ctx context.Context, chatID int64, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_values (chat_id, key, value, updated_at)
         VALUES (?, ?, ?, CURRENT_TIMESTAMP)
         ON CONFLICT(chat_id, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		chatID, key, value)
	if err != nil {
		return fmt.Errorf("session set %s: %w", key, err)
	}
	return nil
}

// Remove deletes a single key. Missing keys are not an error.
func (s *Store) Remove(ctx context.Context, chatID int64, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE chat_id = ? AND key = ?`, chatID, key)
	if err != nil {
		return fmt.Errorf("session remove %s: %w", key, err)
	}
	return nil
}

// MultiRemove deletes several keys in one transaction.
func (s *Store) MultiRemove(ctx context.Context, chatID int64, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session multi remove: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_values WHERE chat_id = ? AND key = ?`, chatID, key); err != nil {
			return fmt.Errorf("session multi remove %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// LoggedInChats maps every chat holding a session to its backend user id.
// Rows with a non-numeric userId value are skipped.
func (s *Store) LoggedInChats(ctx context.Context) (map[int64]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, value FROM session_values WHERE key = ?`, "userId")
	if err != nil {
		return nil, fmt.Errorf("session logged-in chats: %w", err)
	}
	defer rows.Close()

	chats := make(map[int64]int64)
	for rows.Next() {
		var chatID int64
		var value string
		if err := rows.Scan(&chatID, &value); err != nil {
			return nil, fmt.Errorf("session logged-in chats: %w", err)
		}
		userID, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		chats[chatID] = userID
	}
	return chats, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
