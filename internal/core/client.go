package core

// Client is one live connection as seen by the relay core.
// The transport layer owns the Commands channel (it writes, the hub reads)
// and drains Events back to the wire.
type Client struct {
	ConnID   string
	Commands chan *Command
	Events   chan *Event
}

// NewClient constructs a client with initialized channels.
func NewClient(connID string) *Client {
	return &Client{
		ConnID:   connID,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 8),
	}
}
