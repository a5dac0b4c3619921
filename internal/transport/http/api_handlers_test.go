package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medrelay/signal-server/internal/config"
	"github.com/medrelay/signal-server/internal/core"
	"github.com/medrelay/signal-server/internal/log"
	"github.com/medrelay/signal-server/internal/store"
	"github.com/medrelay/signal-server/internal/store/sqlite"
)

func TestListCallsRequiresUser(t *testing.T) {
	ts := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/calls")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListCallsReturnsUserLog(t *testing.T) {
	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	if _, err := st.CreateAttempt(ctx, "alice", "bob", json.RawMessage(`{"sdp":"x"}`)); err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
	if _, err := st.CreateAttempt(ctx, "carol", "dave", nil); err != nil {
		t.Fatalf("seed attempt: %v", err)
	}

	ts := startServerWithStore(t, st)

	resp, err := ts.Client().Get(ts.URL + "/api/calls?user=alice")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Calls []CallAttemptResponse `json:"calls"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Calls) != 1 {
		t.Fatalf("expected 1 call for alice, got %d", len(body.Calls))
	}
	if body.Calls[0].From != "alice" || body.Calls[0].To != "bob" {
		t.Fatalf("unexpected call record: %+v", body.Calls[0])
	}
}

func TestListMessagesReturnsHistory(t *testing.T) {
	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	for _, body := range []string{"first", "second"} {
		if err := st.SaveMessage(ctx, &store.ChatMessage{User: "alice", Body: body}); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	ts := startServerWithStore(t, st)

	resp, err := ts.Client().Get(ts.URL + "/api/messages")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Messages []MessageResponse `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(body.Messages))
	}
	if body.Messages[0].Text != "first" || body.Messages[1].Text != "second" {
		t.Fatalf("expected chronological order, got %+v", body.Messages)
	}
}

func TestCORSHeadersForAllowedOrigin(t *testing.T) {
	ts := startTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Origin", "http://localhost:8080")

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard CORS header in test config, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := startTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/messages", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Origin", "http://localhost:8080")

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", resp.StatusCode)
	}
}

func startServerWithStore(t *testing.T, st store.Store) *httptest.Server {
	t.Helper()

	logger := log.Nop()
	hub := core.NewHub(st, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.AllowedOrigins = []string{"*"}

	server := NewServer(hub, st, cfg, logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts
}
