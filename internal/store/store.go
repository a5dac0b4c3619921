package store

import (
	"context"
	"encoding/json"
	"time"
)

// RejectedSentinel is stored in the answer column when a call is rejected.
// It is a JSON string so the column stays valid JSON either way.
const RejectedSentinel = `"rejected"`

// CallAttempt is one persisted signaling exchange between two users.
// From is always the original offerer, To the callee.
type CallAttempt struct {
	ID        string
	From      string
	To        string
	Offer     json.RawMessage // nil when the record was fallback-inserted by an answer
	Answer    json.RawMessage // nil until answered; RejectedSentinel on rejection
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is a persisted chat message.
type ChatMessage struct {
	ID        int64
	User      string
	Body      string
	CreatedAt time.Time
}

// CallStore handles call attempt persistence.
type CallStore interface {
	// CreateAttempt records a new call attempt at offer time.
	CreateAttempt(ctx context.Context, from, to string, offer json.RawMessage) (*CallAttempt, error)

	// AttachAnswer attaches the answer payload to the most recent open attempt
	// for the (from, to) pair. If no open attempt exists, a new record is
	// inserted instead. Returns true if an existing record was updated.
	AttachAnswer(ctx context.Context, from, to string, answer json.RawMessage) (bool, error)

	// MarkRejected sets the rejected sentinel on the most recent open attempt
	// for the (from, to) pair, inserting a record if none exists.
	// Returns true if an existing record was updated.
	MarkRejected(ctx context.Context, from, to string) (bool, error)

	// GetAttempt retrieves an attempt by ID.
	GetAttempt(ctx context.Context, id string) (*CallAttempt, error)

	// ListAttempts lists attempts involving a user in either direction,
	// newest first, up to limit.
	ListAttempts(ctx context.Context, user string, limit int) ([]*CallAttempt, error)
}

// MessageStore handles chat message persistence.
type MessageStore interface {
	// SaveMessage persists a chat message. The ID field is filled in on return.
	SaveMessage(ctx context.Context, msg *ChatMessage) error

	// ListMessages returns the most recent messages in chronological order.
	ListMessages(ctx context.Context, limit int) ([]*ChatMessage, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	CallStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
