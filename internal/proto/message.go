package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Event names, kept compatible with the socket.io taxonomy the browser clients speak.
const (
	InboundTypeRegister     = "register"
	InboundTypeCallOffer    = "call-offer"
	InboundTypeCallAnswer   = "call-answer"
	InboundTypeICECandidate = "ice-candidate"
	InboundTypeCallReject   = "call-reject"
	InboundTypeCallEnded    = "call-ended"
	InboundTypeSendMessage  = "send_message"

	OutboundTypeCallOffer        = "call-offer"
	OutboundTypeCallAnswer       = "call-answer"
	OutboundTypeICECandidate     = "ice-candidate"
	OutboundTypeCallReject       = "call-reject"
	OutboundTypeCallEnded        = "call-ended"
	OutboundTypeUserDisconnected = "user-disconnected"
	OutboundTypeDeliveryFailed   = "delivery-failed"
	OutboundTypeReceiveMessage   = "receive_message"
	OutboundTypeHistory          = "history"
	OutboundTypeError            = "error"
)

// RegisterData binds a user identity to the current connection.
// Clients may send either a bare JSON string or an object with a userId field.
type RegisterData struct {
	UserID string `json:"userId"`
}

// UnmarshalJSON accepts both `"alice"` and `{"userId":"alice"}`.
func (r *RegisterData) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		r.UserID = s
		return nil
	}
	type plain RegisterData
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	r.UserID = p.UserID
	return nil
}

// OfferData carries an SDP offer toward a target user.
type OfferData struct {
	From  string          `json:"from"`
	To    string          `json:"to"`
	Offer json.RawMessage `json:"offer"`
}

// AnswerData carries an SDP answer back to the original offerer.
type AnswerData struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Answer json.RawMessage `json:"answer"`
}

// CandidateData carries an ICE candidate; pure relay, never persisted.
type CandidateData struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Candidate json.RawMessage `json:"candidate"`
}

// EndData addresses a bare call-reject or call-ended notification.
type EndData struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SendMessageData is a chat message from the client.
type SendMessageData struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// OfferEvent is delivered to the call target.
type OfferEvent struct {
	From  string          `json:"from"`
	Offer json.RawMessage `json:"offer"`
}

// AnswerEvent is delivered to the original offerer.
type AnswerEvent struct {
	Answer json.RawMessage `json:"answer"`
}

// CandidateEvent relays an ICE candidate to the peer.
type CandidateEvent struct {
	Candidate json.RawMessage `json:"candidate"`
}

// UserDisconnectedEvent notifies remaining users that a peer went away.
type UserDisconnectedEvent struct {
	UserID string `json:"userId"`
}

// DeliveryFailedEvent tells the sender that the target user is not registered.
type DeliveryFailedEvent struct {
	To string `json:"to"`
}

// ReceiveMessageEvent is a chat message fanned out to other clients.
type ReceiveMessageEvent struct {
	User string `json:"user"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// HistoryEvent delivers recent chat history after registration.
type HistoryEvent struct {
	Messages []ReceiveMessageEvent `json:"messages"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
