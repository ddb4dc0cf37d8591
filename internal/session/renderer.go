package session

import (
	"github.com/mkulimasmart/chatlink/internal/media"
	"github.com/mkulimasmart/chatlink/internal/protocol"
)

// State is the session's connection state as observed by the renderer.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	// StateExhausted means the reconnect budget is spent. Terminal until
	// an explicit Connect call or a page-reload equivalent.
	StateExhausted State = "exhausted"
)

// Message is a normalized inbound chat message handed to the renderer.
// Encrypted media resolves asynchronously: the renderer shows a
// placeholder for Media and later receives MediaResolved or MediaFailed
// keyed by the message id.
type Message struct {
	ID        string
	ThreadID  string
	Sender    string
	Text      string
	CreatedAt string
	Media     *protocol.Media
	Encrypted bool
}

// Renderer is the display collaborator. All methods are called from the
// session's own goroutines; implementations decide their own threading.
type Renderer interface {
	Message(Message)
	MediaResolved(messageID string, res *media.Resource)
	MediaFailed(messageID string, err error)
	Typing(users []string)
	ConnectionState(State)
}
