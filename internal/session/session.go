// Package session owns one logical connection to a chat thread: connect
// and reconnect with bounded backoff, outbound queueing while offline,
// inbound dispatch with deduplication, typing presence with auto-expiry,
// and asynchronous hand-off of encrypted attachments to the media
// decryption pipeline.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mkulimasmart/chatlink/internal/media"
	"github.com/mkulimasmart/chatlink/internal/protocol"
)

var ErrClosed = errors.New("session closed")

// Decrypter is the slice of the media pipeline the session needs.
type Decrypter interface {
	Decrypt(ctx context.Context, d media.Descriptor) (*media.Resource, error)
}

// Params configures a Session. A Session serves exactly one
// (thread, user) pair; switching threads means constructing a new one.
type Params struct {
	ThreadID  string
	UserID    string // canonicalized at construction
	BaseURL   string // backend base URL, used for dialing and media fetches
	Renderer  Renderer
	Dial      DialFunc  // defaults to WebSocketDialer(BaseURL, false)
	Decrypter Decrypter // defaults to a wrapped-key pipeline with no key material

	TypingExpiry         time.Duration // default 5s
	MaxReconnectAttempts int           // default 5
	DedupCapacity        int           // default 100
}

type typingEntry struct {
	timer *time.Timer
}

// Session is safe for concurrent use. The transport handle is owned
// exclusively by the session and replaced, never shared, on reconnect.
type Session struct {
	threadID     string
	userID       string
	baseURL      string
	renderer     Renderer
	dial         DialFunc
	decrypter    Decrypter
	typingExpiry time.Duration
	maxAttempts  int
	backoff      func(attempt int) time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	state          State
	tr             Transport
	token          string
	pending        []protocol.Outbound
	seen           *seenCache
	typing         map[string]*typingEntry
	attempts       int
	reconnectTimer *time.Timer
	gen            int
	closed         bool
}

func New(p Params) *Session {
	if p.TypingExpiry <= 0 {
		p.TypingExpiry = 5 * time.Second
	}
	if p.MaxReconnectAttempts <= 0 {
		p.MaxReconnectAttempts = 5
	}
	if p.DedupCapacity <= 0 {
		p.DedupCapacity = 100
	}
	if p.Dial == nil {
		p.Dial = WebSocketDialer(p.BaseURL, false)
	}
	if p.Decrypter == nil {
		p.Decrypter = media.NewPipeline(media.WrappedKeyStrategy{}, nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		threadID:     p.ThreadID,
		userID:       protocol.CanonicalID(p.UserID),
		baseURL:      p.BaseURL,
		renderer:     p.Renderer,
		dial:         p.Dial,
		decrypter:    p.Decrypter,
		typingExpiry: p.TypingExpiry,
		maxAttempts:  p.MaxReconnectAttempts,
		backoff:      backoffDelay,
		ctx:          ctx,
		cancel:       cancel,
		state:        StateDisconnected,
		seen:         newSeenCache(p.DedupCapacity),
		typing:       make(map[string]*typingEntry),
	}
}

// Connect opens the transport. Idempotent: a call while a connection is
// open or in flight is a no-op. A dial failure schedules a reconnect and
// is also returned to the caller.
func (s *Session) Connect(ctx context.Context, token string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state == StateConnected || s.state == StateConnecting {
		s.mu.Unlock()
		return nil
	}
	s.token = token
	s.attempts = 0
	s.mu.Unlock()
	return s.establish(ctx)
}

// Send transmits a frame if connected, or defers it if not. The queued
// return distinguishes deferred delivery (true, nil) from an immediate
// transmit (false, nil). A transmit failure re-queues the frame at the
// front so it is retried before anything newer, and reports the error.
func (s *Session) Send(out protocol.Outbound) (queued bool, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if s.state != StateConnected || s.tr == nil {
		s.pending = append(s.pending, out)
		s.mu.Unlock()
		return true, nil
	}
	tr := s.tr
	s.mu.Unlock()

	if err := tr.WriteJSON(out); err != nil {
		s.mu.Lock()
		s.pending = append([]protocol.Outbound{out}, s.pending...)
		s.mu.Unlock()
		return false, fmt.Errorf("send %s: %w", out.Kind, err)
	}
	return false, nil
}

// Close tears the session down: cancels in-flight work, stops timers,
// closes the transport. Outstanding media decryptions are abandoned.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.gen++
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	for _, e := range s.typing {
		e.timer.Stop()
	}
	tr := s.tr
	s.tr = nil
	s.mu.Unlock()

	s.cancel()
	if tr != nil {
		tr.Close()
	}
	return nil
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QueueLen returns the number of pending outbound frames.
func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// TypingUsers returns the peers currently typing, sorted.
func (s *Session) TypingUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typingUsersLocked()
}

func (s *Session) typingUsersLocked() []string {
	users := make([]string, 0, len(s.typing))
	for u := range s.typing {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

func (s *Session) establish(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state == StateConnected || s.state == StateConnecting {
		s.mu.Unlock()
		return nil
	}
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	if s.tr != nil {
		s.tr.Close()
		s.tr = nil
	}
	s.gen++
	gen := s.gen
	token := s.token
	s.state = StateConnecting
	s.mu.Unlock()
	s.renderer.ConnectionState(StateConnecting)

	tr, err := s.dial(ctx, s.threadID, token)

	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		if tr != nil {
			tr.Close()
		}
		return ErrClosed
	}
	if err != nil {
		s.state = StateDisconnected
		exhausted := s.scheduleReconnectLocked()
		s.mu.Unlock()
		s.notifyDown(exhausted)
		return fmt.Errorf("connect thread %s: %w", s.threadID, err)
	}
	s.tr = tr
	s.attempts = 0
	s.state = StateConnected
	s.mu.Unlock()

	slog.Info("connected", "thread", s.threadID)
	s.renderer.ConnectionState(StateConnected)
	s.drain()
	go s.readLoop(gen, tr)
	return nil
}

// drain flushes the pending queue strictly FIFO. A write failure puts
// the frame back at the front and stops; the read loop's error path owns
// the reconnect.
func (s *Session) drain() {
	for {
		s.mu.Lock()
		if s.closed || s.state != StateConnected || s.tr == nil || len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		out := s.pending[0]
		s.pending = s.pending[1:]
		tr := s.tr
		s.mu.Unlock()

		if err := tr.WriteJSON(out); err != nil {
			slog.Warn("queue drain interrupted", "thread", s.threadID, "kind", out.Kind, "error", err)
			s.mu.Lock()
			s.pending = append([]protocol.Outbound{out}, s.pending...)
			s.mu.Unlock()
			return
		}
	}
}

func (s *Session) readLoop(gen int, tr Transport) {
	for {
		data, err := tr.ReadMessage()
		if err != nil {
			s.onTransportClosed(gen, err)
			return
		}
		s.dispatch(data)
	}
}

func (s *Session) onTransportClosed(gen int, cause error) {
	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		return
	}
	if s.tr != nil {
		s.tr.Close()
		s.tr = nil
	}
	s.state = StateDisconnected
	exhausted := s.scheduleReconnectLocked()
	s.mu.Unlock()

	slog.Warn("connection lost", "thread", s.threadID, "error", cause)
	s.notifyDown(exhausted)
}

func (s *Session) notifyDown(exhausted bool) {
	s.renderer.ConnectionState(StateDisconnected)
	if exhausted {
		slog.Error("reconnect attempts exhausted", "thread", s.threadID, "attempts", s.maxAttempts)
		s.renderer.ConnectionState(StateExhausted)
	}
}

// scheduleReconnectLocked arms the single reconnect timer, replacing any
// pending one. Returns true when the attempt budget is spent; recovery
// then requires an explicit Connect.
func (s *Session) scheduleReconnectLocked() bool {
	if s.attempts >= s.maxAttempts {
		s.state = StateExhausted
		return true
	}
	delay := s.backoff(s.attempts)
	s.attempts++
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
	}
	s.reconnectTimer = time.AfterFunc(delay, s.reconnect)
	slog.Info("reconnect scheduled", "thread", s.threadID, "attempt", s.attempts, "delay", delay)
	return false
}

// backoffDelay is min(1s << attempt, 30s).
func backoffDelay(attempt int) time.Duration {
	if attempt >= 5 {
		return 30 * time.Second
	}
	return time.Duration(1<<attempt) * time.Second
}

func (s *Session) reconnect() {
	s.mu.Lock()
	if s.closed || s.state == StateConnected || s.state == StateConnecting {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	if err := s.establish(s.ctx); err != nil && !errors.Is(err, ErrClosed) {
		slog.Warn("reconnect failed", "thread", s.threadID, "error", err)
	}
}

// dispatch classifies one inbound frame. Parse failures are logged and
// dropped per frame; nothing here tears the session down.
func (s *Session) dispatch(data []byte) {
	ev, err := protocol.DecodeEvent(data)
	if err != nil {
		slog.Warn("drop unparseable frame", "thread", s.threadID, "error", err)
		return
	}
	switch ev.Type {
	case protocol.EventMessageNew:
		s.handleMessageNew(ev)
	case protocol.EventTypingStart:
		s.handleTyping(ev.User, true)
	case protocol.EventTypingStop:
		s.handleTyping(ev.User, false)
	case protocol.EventMediaAck:
		slog.Debug("media ack", "thread", s.threadID)
	default:
		slog.Debug("drop unknown frame", "thread", s.threadID, "type", ev.Raw)
	}
}

func (s *Session) handleMessageNew(ev *protocol.Event) {
	s.mu.Lock()
	if ev.ID != "" && s.seen.ExistsOrAdd(ev.ID) {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	// The sender rendered its own message optimistically at send time;
	// rendering the echo would duplicate it.
	if ev.Sender != "" && ev.Sender == s.userID {
		return
	}

	msg := Message{
		ID:        ev.ID,
		ThreadID:  ev.ThreadID,
		Sender:    ev.Sender,
		Text:      ev.Text,
		CreatedAt: ev.CreatedAt,
		Media:     ev.Media,
		Encrypted: ev.Media.EncryptedFor(s.userID),
	}
	s.renderer.Message(msg)

	if msg.Encrypted {
		go s.decryptMedia(msg)
	}
}

// decryptMedia runs off the dispatch path so frame processing never
// blocks on a fetch or an AEAD open. A stale completion after Close is
// harmless: it targets a uniquely-addressed placeholder.
func (s *Session) decryptMedia(msg Message) {
	m := msg.Media
	desc := media.Descriptor{
		MediaID:    m.ID,
		URL:        ResolveMediaURL(s.baseURL, m.URL),
		MIME:       m.MIME,
		FileName:   m.FileName,
		Nonce:      m.Nonce,
		WrappedKey: m.WrappedKeyFor(s.userID),
	}
	res, err := s.decrypter.Decrypt(s.ctx, desc)
	if err != nil {
		slog.Warn("media decrypt failed",
			"thread", s.threadID, "media", m.ID, "reason", media.ReasonOf(err), "error", err)
		s.renderer.MediaFailed(msg.ID, err)
		return
	}
	s.renderer.MediaResolved(msg.ID, res)
}

func (s *Session) handleTyping(user string, start bool) {
	if user == "" || user == s.userID {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if start {
		if e, ok := s.typing[user]; ok {
			e.timer.Stop()
		}
		entry := &typingEntry{}
		entry.timer = time.AfterFunc(s.typingExpiry, func() { s.expireTyping(user, entry) })
		s.typing[user] = entry
	} else {
		e, ok := s.typing[user]
		if !ok {
			s.mu.Unlock()
			return
		}
		e.timer.Stop()
		delete(s.typing, user)
	}
	users := s.typingUsersLocked()
	s.mu.Unlock()
	s.renderer.Typing(users)
}

// expireTyping bounds a stuck indicator when a typing_stop is lost. The
// entry comparison ignores a timer that lost a race with a refresh.
func (s *Session) expireTyping(user string, entry *typingEntry) {
	s.mu.Lock()
	cur, ok := s.typing[user]
	if !ok || cur != entry {
		s.mu.Unlock()
		return
	}
	delete(s.typing, user)
	users := s.typingUsersLocked()
	s.mu.Unlock()
	s.renderer.Typing(users)
}
