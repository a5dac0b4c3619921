package core

import (
	"encoding/json"
	"time"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventCallOffer notifies the target of an incoming offer.
	EventCallOffer EventKind = iota
	// EventCallAnswer delivers the answer back to the offerer.
	EventCallAnswer
	// EventICECandidate relays a network candidate.
	EventICECandidate
	// EventCallReject is a bare rejection notification.
	EventCallReject
	// EventCallEnded is a bare hang-up notification.
	EventCallEnded
	// EventUserDisconnected notifies remaining users that a peer went away.
	EventUserDisconnected
	// EventDeliveryFailed tells the sender the target user is not registered.
	EventDeliveryFailed
	// EventChatMessage delivers a chat message from another user.
	EventChatMessage
	// EventHistory delivers recent chat history after registration.
	EventHistory
	// EventError notifies the client about a protocol error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind EventKind

	// From is the sender identity on relayed call events.
	From string
	// User is the subject of user-disconnected events.
	User string
	// To is the unreachable target on delivery-failed events.
	To string

	// Payload carries the opaque SDP or ICE body being relayed.
	Payload json.RawMessage

	Message  ChatMessage
	Messages []ChatMessage

	Error *RelayError
}

// ChatMessage is the core view of a chat message.
type ChatMessage struct {
	User      string
	Text      string
	CreatedAt time.Time
}
