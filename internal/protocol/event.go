package protocol

import (
	"encoding/json"
	"fmt"
)

// Event is an inbound frame normalized at the transport boundary.
// Exactly one closed set of types enters the session's dispatch switch;
// unrecognized frames carry Type == EventUnknown with Raw preserved for
// logging.
type Event struct {
	Type      string
	ID        string // message id, message_new only
	ThreadID  string
	Sender    string // canonical, message_new only
	User      string // canonical, typing events only
	Text      string
	CreatedAt string
	Media     *Media
	Raw       string // original discriminator for unknown frames
}

// rawEvent mirrors everything the legacy backend may put on the wire.
// Identity fields arrive inconsistently as numbers or strings, and text,
// sender and media fields each have two historical spellings.
type rawEvent struct {
	Type      string          `json:"type"`
	ID        json.RawMessage `json:"id"`
	AltID     json.RawMessage `json:"message_id"`
	ThreadID  json.RawMessage `json:"thread_id"`
	Sender    json.RawMessage `json:"sender"`
	SenderID  json.RawMessage `json:"sender_id"`
	User      json.RawMessage `json:"user"`
	Text      string          `json:"text"`
	Content   string          `json:"content"`
	CreatedAt string          `json:"created_at"`
	Timestamp string          `json:"timestamp"`
	Media     *rawMedia       `json:"media"`

	// Flat media fields, pre-dating the nested bundle.
	MediaID  json.RawMessage `json:"media_id"`
	MediaURL string          `json:"media_url"`
	HasMedia bool            `json:"has_media"`
}

// DecodeEvent parses one inbound frame. A JSON parse failure is the only
// error; a recognized structure with an unknown type is not an error, it
// decodes as EventUnknown and is the caller's to drop.
func DecodeEvent(data []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	ev := &Event{
		ThreadID:  canonicalRawID(raw.ThreadID),
		Sender:    canonicalRawID(raw.Sender),
		Text:      firstNonEmpty(raw.Text, raw.Content),
		CreatedAt: firstNonEmpty(raw.CreatedAt, raw.Timestamp),
	}
	if ev.Sender == "" {
		ev.Sender = canonicalRawID(raw.SenderID)
	}
	ev.ID = canonicalRawID(raw.ID)
	if ev.ID == "" {
		ev.ID = canonicalRawID(raw.AltID)
	}
	ev.User = canonicalRawID(raw.User)

	switch raw.Type {
	case EventMessageNew:
		ev.Type = EventMessageNew
		ev.Media = raw.Media.normalize()
		if ev.Media == nil && (raw.HasMedia || raw.MediaURL != "") {
			ev.Media = (&rawMedia{ID: raw.MediaID, URL: raw.MediaURL}).normalize()
		}
	case EventTypingStart:
		ev.Type = EventTypingStart
	case EventTypingStop:
		ev.Type = EventTypingStop
	case EventMediaAck:
		ev.Type = EventMediaAck
	default:
		ev.Type = EventUnknown
		ev.Raw = raw.Type
	}
	return ev, nil
}
