package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/medrelay/signal-server/internal/store"
)

const (
	defaultHistoryLimit   = 50
	defaultPersistTimeout = 3 * time.Second
)

type clientCommand struct {
	client *Client
	cmd    *Command
}

// Hub is the signaling relay. A single run loop owns all routing decisions,
// so events from one connection are handled in arrival order. Persistence is
// dispatched off the loop and never delays relay delivery.
type Hub struct {
	presence *Presence
	store    store.Store // may be nil; relay then runs without persistence
	log      zerolog.Logger

	registerCh   chan *Client
	unregisterCh chan *Client
	commands     chan clientCommand

	// HistoryLimit caps the chat history replayed on registration.
	HistoryLimit int
	// PersistTimeout bounds each fire-and-forget store write.
	PersistTimeout time.Duration
}

// NewHub creates a relay hub. Both arguments may be nil in tests.
func NewHub(st store.Store, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		presence:       NewPresence(),
		store:          st,
		log:            *logger,
		registerCh:     make(chan *Client),
		unregisterCh:   make(chan *Client),
		commands:       make(chan clientCommand, 64),
		HistoryLimit:   defaultHistoryLimit,
		PersistTimeout: defaultPersistTimeout,
	}
}

// Presence exposes the registry for read-only inspection.
func (h *Hub) Presence() *Presence {
	return h.presence
}

// RegisterClient attaches a connection to the hub. The hub starts consuming
// the client's Commands channel; callers must not close it themselves.
func (h *Hub) RegisterClient(c *Client) {
	h.registerCh <- c
}

// UnregisterClient detaches a connection. Idempotent: detaching a client that
// was never attached, or detaching twice, is a no-op. Callers must not send
// commands for this client afterwards.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregisterCh <- c
}

// Run processes registrations and commands until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	attached := make(map[*Client]struct{})

	for {
		select {
		case c := <-h.registerCh:
			if _, ok := attached[c]; ok {
				continue
			}
			attached[c] = struct{}{}
			go h.pump(ctx, c)

		case c := <-h.unregisterCh:
			if _, ok := attached[c]; !ok {
				continue
			}
			delete(attached, c)
			close(c.Commands)
			h.handleDisconnect(c)

		case cc := <-h.commands:
			if _, ok := attached[cc.client]; !ok {
				continue
			}
			h.handleCommand(cc.client, cc.cmd)

		case <-ctx.Done():
			return
		}
	}
}

// pump forwards a client's commands into the hub loop, preserving
// per-connection ordering.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for cmd := range c.Commands {
		select {
		case h.commands <- clientCommand{client: c, cmd: cmd}:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleCommand(c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandRegister:
		h.handleRegister(c, cmd)
	case CommandCallOffer:
		h.handleOffer(c, cmd)
	case CommandCallAnswer:
		h.handleAnswer(c, cmd)
	case CommandICECandidate:
		h.relay(c, cmd, &Event{Kind: EventICECandidate, From: cmd.From, Payload: cmd.Payload})
	case CommandCallReject:
		h.handleReject(c, cmd)
	case CommandCallEnded:
		h.relay(c, cmd, &Event{Kind: EventCallEnded, From: cmd.From})
	case CommandSendMessage:
		h.handleChatMessage(c, cmd)
	default:
		h.send(c, &Event{Kind: EventError, Error: &RelayError{
			Code:    ErrCodeUnknownEvent,
			Message: "unknown command",
		}})
	}
}

func (h *Hub) handleRegister(c *Client, cmd *Command) {
	if cmd.User == "" {
		h.send(c, &Event{Kind: EventError, Error: &RelayError{
			Code:    ErrCodeBadRequest,
			Message: "userId is required",
		}})
		return
	}

	h.presence.Register(cmd.User, c)
	h.log.Info().Str("user", cmd.User).Str("conn_id", c.ConnID).Msg("user registered")

	h.deliverHistory(c)
}

// handleOffer relays the offer to the target and records the attempt.
func (h *Hub) handleOffer(c *Client, cmd *Command) {
	target, ok := h.presence.Resolve(cmd.To)
	if !ok {
		h.deliveryFailed(c, cmd)
		return
	}

	h.log.Info().Str("from", cmd.From).Str("to", cmd.To).Msg("relaying call offer")
	h.send(target, &Event{Kind: EventCallOffer, From: cmd.From, Payload: cmd.Payload})

	from, to, offer := cmd.From, cmd.To, cmd.Payload
	h.persist("create attempt", func(ctx context.Context) error {
		_, err := h.store.CreateAttempt(ctx, from, to, offer)
		return err
	})
}

// handleAnswer relays the answer back to the offerer. The stored attempt is
// keyed by the original offer direction, so the lookup swaps from and to.
func (h *Hub) handleAnswer(c *Client, cmd *Command) {
	target, ok := h.presence.Resolve(cmd.To)
	if !ok {
		h.deliveryFailed(c, cmd)
		return
	}

	h.log.Info().Str("from", cmd.From).Str("to", cmd.To).Msg("relaying call answer")
	h.send(target, &Event{Kind: EventCallAnswer, From: cmd.From, Payload: cmd.Payload})

	offerer, answerer, answer := cmd.To, cmd.From, cmd.Payload
	h.persist("attach answer", func(ctx context.Context) error {
		updated, err := h.store.AttachAnswer(ctx, offerer, answerer, answer)
		if err == nil && !updated {
			h.log.Debug().Str("from", offerer).Str("to", answerer).Msg("no open attempt, inserted answer record")
		}
		return err
	})
}

func (h *Hub) handleReject(c *Client, cmd *Command) {
	target, ok := h.presence.Resolve(cmd.To)
	if !ok {
		h.deliveryFailed(c, cmd)
		return
	}

	h.log.Info().Str("from", cmd.From).Str("to", cmd.To).Msg("relaying call reject")
	h.send(target, &Event{Kind: EventCallReject, From: cmd.From})

	offerer, rejecter := cmd.To, cmd.From
	h.persist("mark rejected", func(ctx context.Context) error {
		_, err := h.store.MarkRejected(ctx, offerer, rejecter)
		return err
	})
}

// relay forwards an event without persistence.
func (h *Hub) relay(c *Client, cmd *Command, ev *Event) {
	target, ok := h.presence.Resolve(cmd.To)
	if !ok {
		h.deliveryFailed(c, cmd)
		return
	}
	h.send(target, ev)
}

func (h *Hub) handleChatMessage(c *Client, cmd *Command) {
	msg := ChatMessage{User: cmd.User, Text: cmd.Text, CreatedAt: time.Now()}

	for _, entry := range h.presence.Entries() {
		if entry.Client == c {
			continue
		}
		h.send(entry.Client, &Event{Kind: EventChatMessage, Message: msg})
	}

	h.persist("save message", func(ctx context.Context) error {
		return h.store.SaveMessage(ctx, &store.ChatMessage{
			User:      msg.User,
			Body:      msg.Text,
			CreatedAt: msg.CreatedAt,
		})
	})
}

// handleDisconnect releases the presence binding and notifies every other
// registered user. With no active-call index, the conservative policy is a
// full broadcast.
func (h *Hub) handleDisconnect(c *Client) {
	userID, ok := h.presence.Unregister(c.ConnID)
	if !ok {
		return
	}

	h.log.Info().Str("user", userID).Str("conn_id", c.ConnID).Msg("user disconnected")

	for _, entry := range h.presence.Entries() {
		if entry.Client == c {
			continue
		}
		h.send(entry.Client, &Event{Kind: EventUserDisconnected, User: userID})
	}
}

func (h *Hub) deliveryFailed(c *Client, cmd *Command) {
	h.log.Debug().Str("from", cmd.From).Str("to", cmd.To).Msg("target not registered, dropping event")
	h.send(c, &Event{Kind: EventDeliveryFailed, To: cmd.To})
}

// send delivers an event without blocking the loop. A resolved client may
// disconnect between resolution and delivery; a full buffer is treated the
// same way and the event is dropped.
func (h *Hub) send(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		h.log.Warn().Str("conn_id", c.ConnID).Int("kind", int(ev.Kind)).Msg("dropping event for slow client")
	}
}

// persist runs a store write off the relay path with a bounded timeout.
// Failures are logged and swallowed; the relay never waits for them.
func (h *Hub) persist(op string, fn func(ctx context.Context) error) {
	if h.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.PersistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			h.log.Error().Err(err).Str("op", op).Msg("persistence failed")
		}
	}()
}

// deliverHistory loads recent chat history and sends it to the client.
// Runs off the loop so a slow store cannot stall routing.
func (h *Hub) deliverHistory(c *Client) {
	if h.store == nil {
		return
	}
	limit := h.HistoryLimit
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.PersistTimeout)
		defer cancel()

		stored, err := h.store.ListMessages(ctx, limit)
		if err != nil {
			h.log.Error().Err(err).Msg("load chat history")
			return
		}

		messages := make([]ChatMessage, 0, len(stored))
		for _, m := range stored {
			messages = append(messages, ChatMessage{User: m.User, Text: m.Body, CreatedAt: m.CreatedAt})
		}
		h.send(c, &Event{Kind: EventHistory, Messages: messages})
	}()
}
