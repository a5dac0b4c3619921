package core

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medrelay/signal-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v received", kind)
			}
		case <-timeout:
			return
		}
	}
}

func mustOp(t *testing.T, ch <-chan string, op string) {
	t.Helper()

	select {
	case got := <-ch:
		if got != op {
			t.Fatalf("expected persisted op %q, got %q", op, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("persisted op %q not observed", op)
	}
}

// fakeStore is an in-memory store.Store that signals each write on Ops.
type fakeStore struct {
	mu       sync.Mutex
	attempts []*store.CallAttempt
	messages []*store.ChatMessage

	Ops chan string
}

func newFakeStore() *fakeStore {
	return &fakeStore{Ops: make(chan string, 16)}
}

func (f *fakeStore) CreateAttempt(_ context.Context, from, to string, offer json.RawMessage) (*store.CallAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt := &store.CallAttempt{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Offer:     offer,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.attempts = append(f.attempts, attempt)
	f.Ops <- "create_attempt"
	return attempt, nil
}

func (f *fakeStore) AttachAnswer(_ context.Context, from, to string, answer json.RawMessage) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.Ops <- "attach_answer" }()
	if attempt := f.findOpen(from, to); attempt != nil {
		attempt.Answer = answer
		attempt.UpdatedAt = time.Now()
		return true, nil
	}
	f.attempts = append(f.attempts, &store.CallAttempt{
		ID: uuid.NewString(), From: from, To: to, Answer: answer,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	return false, nil
}

func (f *fakeStore) MarkRejected(_ context.Context, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.Ops <- "mark_rejected" }()
	if attempt := f.findOpen(from, to); attempt != nil {
		attempt.Answer = json.RawMessage(store.RejectedSentinel)
		attempt.UpdatedAt = time.Now()
		return true, nil
	}
	f.attempts = append(f.attempts, &store.CallAttempt{
		ID: uuid.NewString(), From: from, To: to,
		Answer:    json.RawMessage(store.RejectedSentinel),
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	return false, nil
}

func (f *fakeStore) findOpen(from, to string) *store.CallAttempt {
	for i := len(f.attempts) - 1; i >= 0; i-- {
		a := f.attempts[i]
		if a.From == from && a.To == to && a.Answer == nil {
			return a
		}
	}
	return nil
}

func (f *fakeStore) GetAttempt(_ context.Context, id string) (*store.CallAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, context.Canceled
}

func (f *fakeStore) ListAttempts(_ context.Context, user string, limit int) ([]*store.CallAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*store.CallAttempt, 0)
	for i := len(f.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		a := f.attempts[i]
		if a.From == user || a.To == user {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveMessage(_ context.Context, msg *store.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = int64(len(f.messages) + 1)
	f.messages = append(f.messages, msg)
	f.Ops <- "save_message"
	return nil
}

func (f *fakeStore) ListMessages(_ context.Context, limit int) ([]*store.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := 0
	if len(f.messages) > limit {
		start = len(f.messages) - limit
	}
	return append([]*store.ChatMessage(nil), f.messages[start:]...), nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

func (f *fakeStore) attemptAt(i int) store.CallAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.attempts[i]
}
