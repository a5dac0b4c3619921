package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/medrelay/signal-server/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type apiHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

func newAPIHandlers(st store.Store, logger *zerolog.Logger) *apiHandlers {
	return &apiHandlers{store: st, log: logger}
}

// ErrorResponse is the JSON error body for the REST surface.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CallAttemptResponse is the JSON view of a persisted call attempt.
type CallAttemptResponse struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// MessageResponse is the JSON view of a chat message.
type MessageResponse struct {
	ID        int64     `json:"id"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// listCalls returns the durable call log for one user, newest first.
func (h *apiHandlers) listCalls(c *gin.Context) {
	user := c.Query("user")
	if user == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user query parameter is required"})
		return
	}

	attempts, err := h.store.ListAttempts(c.Request.Context(), user, parseLimit(c))
	if err != nil {
		h.log.Error().Err(err).Str("user", user).Msg("list call attempts")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list calls"})
		return
	}

	out := make([]CallAttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, CallAttemptResponse{
			ID:        a.ID,
			From:      a.From,
			To:        a.To,
			Offer:     a.Offer,
			Answer:    a.Answer,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"calls": out})
}

// listMessages returns recent chat history in chronological order.
func (h *apiHandlers) listMessages(c *gin.Context) {
	messages, err := h.store.ListMessages(c.Request.Context(), parseLimit(c))
	if err != nil {
		h.log.Error().Err(err).Msg("list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list messages"})
		return
	}

	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, MessageResponse{
			ID:        m.ID,
			User:      m.User,
			Text:      m.Body,
			CreatedAt: m.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func parseLimit(c *gin.Context) int {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit
}
