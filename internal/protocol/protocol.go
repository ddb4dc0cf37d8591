// Package protocol defines the JSON wire format exchanged with the chat
// backend: a tagged outbound frame per logical action and a normalized
// inbound event decoded at the transport boundary.
package protocol

import "encoding/json"

// Outbound frame kinds.
const (
	KindMessageNew  = "message_new"
	KindTypingStart = "typing_start"
	KindTypingStop  = "typing_stop"
	KindDeleteMedia = "delete_media"
)

// Inbound event types. Anything else decodes as EventUnknown.
const (
	EventMessageNew  = "message_new"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
	EventMediaAck    = "media_ack"
	EventUnknown     = "unknown"
)

// Outbound is one frame sent to the server. Immutable once queued.
type Outbound struct {
	Kind     string `json:"type"`
	ThreadID string `json:"thread_id"`
	Sender   string `json:"sender,omitempty"`   // message_new, delete_media
	User     string `json:"user,omitempty"`     // typing_start, typing_stop
	Text     string `json:"text,omitempty"`     // message_new
	MediaID  string `json:"media_id,omitempty"` // delete_media
}

// NewMessage builds a message_new frame.
func NewMessage(threadID, sender, text string) Outbound {
	return Outbound{Kind: KindMessageNew, ThreadID: threadID, Sender: sender, Text: text}
}

// TypingStart builds a typing_start frame.
func TypingStart(threadID, user string) Outbound {
	return Outbound{Kind: KindTypingStart, ThreadID: threadID, User: user}
}

// TypingStop builds a typing_stop frame.
func TypingStop(threadID, user string) Outbound {
	return Outbound{Kind: KindTypingStop, ThreadID: threadID, User: user}
}

// DeleteMedia builds a delete_media frame.
func DeleteMedia(threadID, sender, mediaID string) Outbound {
	return Outbound{Kind: KindDeleteMedia, ThreadID: threadID, Sender: sender, MediaID: mediaID}
}

// Encode serializes the frame for the wire.
func (o Outbound) Encode() ([]byte, error) {
	return json.Marshal(o)
}
