package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandRegister binds a user identity to the connection.
	CommandRegister CommandKind = iota
	// CommandCallOffer relays an SDP offer to a target user.
	CommandCallOffer
	// CommandCallAnswer relays an SDP answer back to the offerer.
	CommandCallAnswer
	// CommandICECandidate relays an ICE candidate; never persisted.
	CommandICECandidate
	// CommandCallReject notifies the offerer that the call was declined.
	CommandCallReject
	// CommandCallEnded notifies the peer that the call is over.
	CommandCallEnded
	// CommandSendMessage broadcasts a chat message to all other users.
	CommandSendMessage
)

// Command represents an action requested by a client.
type Command struct {
	Kind CommandKind

	// User is the identity being registered (CommandRegister) or the chat
	// message author (CommandSendMessage).
	User string

	// From and To identify the peers of a call-control event.
	From string
	To   string

	// Payload carries the opaque SDP or ICE body; the relay never inspects it.
	Payload json.RawMessage

	// Text is the chat message body.
	Text string
}
