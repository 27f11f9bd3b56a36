package models

// Message is the engine's view of a chat message as exposed by the
// message store bridge. IDs are opaque strings assigned by the transport.
type Message struct {
	ID     string `json:"id"`
	Chat   string `json:"chat"`
	Sender string `json:"sender,omitempty"`
	Text   string `json:"text"`
	// TS is the original send time (unix nanoseconds).
	TS int64 `json:"ts"`
	// Outgoing marks messages sent from this account.
	Outgoing bool `json:"outgoing,omitempty"`
	// HasMedia and Forwarded disqualify a message from squashing.
	HasMedia  bool `json:"has_media,omitempty"`
	Forwarded bool `json:"forwarded,omitempty"`
}

// PlainText reports whether the message is strictly plain text: it has a
// non-empty body, no media and is not a forward. Only plain-text messages
// participate in chains.
func (m Message) PlainText() bool {
	return m.Text != "" && !m.HasMedia && !m.Forwarded
}
