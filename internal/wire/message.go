// Package wire defines the Message exchanged between chat clients and the
// server and the stream codec used to carry it over a connection.
package wire

const (
	// ServerSender is the sender of every system notice.
	ServerSender = "SERVER"
	// All is the recipient of a broadcast.
	All = "ALL"
)

// Message is a single chat message. Values are treated as immutable: a new
// Message is built whenever sender or recipient has to change.
type Message struct {
	Sender string `json:"sender,omitempty"`
	To     string `json:"to,omitempty"`
	Text   string `json:"text"`
}

// Notice builds a system message from the server.
func Notice(text string) Message {
	return Message{Sender: ServerSender, Text: text}
}

// IsBroadcast reports whether m is addressed to every connected session.
func (m Message) IsBroadcast() bool {
	return m.To == All
}

// WithSender returns a copy of m sent by sender.
func (m Message) WithSender(sender string) Message {
	m.Sender = sender
	return m
}
