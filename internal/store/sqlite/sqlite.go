package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/medrelay/signal-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS call_attempts (
	id         TEXT PRIMARY KEY,
	from_user  TEXT NOT NULL,
	to_user    TEXT NOT NULL,
	offer      TEXT,
	answer     TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_call_attempts_pair
	ON call_attempts (from_user, to_user, created_at);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user       TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== CallStore implementation ====

// CreateAttempt records a new call attempt at offer time.
func (s *SQLiteStore) CreateAttempt(ctx context.Context, from, to string, offer json.RawMessage) (*store.CallAttempt, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO call_attempts (id, from_user, to_user, offer)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, from, to, rawToNull(offer)); err != nil {
		return nil, fmt.Errorf("insert call attempt: %w", err)
	}

	return s.GetAttempt(ctx, id)
}

// AttachAnswer attaches the answer to the most recent open attempt for the pair,
// falling back to inserting a fresh record when no open attempt exists.
func (s *SQLiteStore) AttachAnswer(ctx context.Context, from, to string, answer json.RawMessage) (bool, error) {
	return s.settleAttempt(ctx, from, to, rawToNull(answer))
}

// MarkRejected marks the most recent open attempt for the pair as rejected,
// inserting a record if none exists.
func (s *SQLiteStore) MarkRejected(ctx context.Context, from, to string) (bool, error) {
	return s.settleAttempt(ctx, from, to, sql.NullString{String: store.RejectedSentinel, Valid: true})
}

func (s *SQLiteStore) settleAttempt(ctx context.Context, from, to string, answer sql.NullString) (bool, error) {
	query := `
		UPDATE call_attempts
		SET answer = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = (
			SELECT id FROM call_attempts
			WHERE from_user = ? AND to_user = ? AND answer IS NULL
			ORDER BY created_at DESC, rowid DESC
			LIMIT 1
		)
	`
	result, err := s.db.ExecContext(ctx, query, answer, from, to)
	if err != nil {
		return false, fmt.Errorf("settle call attempt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	insert := `
		INSERT INTO call_attempts (id, from_user, to_user, answer)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, insert, uuid.NewString(), from, to, answer); err != nil {
		return false, fmt.Errorf("insert settled attempt: %w", err)
	}
	return false, nil
}

// GetAttempt retrieves an attempt by ID.
func (s *SQLiteStore) GetAttempt(ctx context.Context, id string) (*store.CallAttempt, error) {
	query := `
		SELECT id, from_user, to_user, offer, answer, created_at, updated_at
		FROM call_attempts
		WHERE id = ?
	`
	attempt, err := scanAttempt(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("call attempt not found: %w", err)
		}
		return nil, fmt.Errorf("query call attempt: %w", err)
	}
	return attempt, nil
}

// ListAttempts lists attempts involving a user in either direction, newest first.
func (s *SQLiteStore) ListAttempts(ctx context.Context, user string, limit int) ([]*store.CallAttempt, error) {
	query := `
		SELECT id, from_user, to_user, offer, answer, created_at, updated_at
		FROM call_attempts
		WHERE from_user = ? OR to_user = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, user, user, limit)
	if err != nil {
		return nil, fmt.Errorf("query call attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*store.CallAttempt, 0)
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan call attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call attempts: %w", err)
	}

	return attempts, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a chat message.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.ChatMessage) error {
	query := `
		INSERT INTO messages (user, body)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, msg.User, msg.Body)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id

	return nil
}

// ListMessages returns the most recent messages in chronological order.
func (s *SQLiteStore) ListMessages(ctx context.Context, limit int) ([]*store.ChatMessage, error) {
	// Select newest first, then reverse so callers get chronological order.
	query := `
		SELECT id, user, body, created_at
		FROM messages
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.ChatMessage, 0)
	for rows.Next() {
		var msg store.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.User, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*store.CallAttempt, error) {
	var attempt store.CallAttempt
	var offer, answer sql.NullString
	if err := row.Scan(
		&attempt.ID,
		&attempt.From,
		&attempt.To,
		&offer,
		&answer,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if offer.Valid {
		attempt.Offer = json.RawMessage(offer.String)
	}
	if answer.Valid {
		attempt.Answer = json.RawMessage(answer.String)
	}

	return &attempt, nil
}

func rawToNull(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
