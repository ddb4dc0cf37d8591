// Package devserver is a loopback chat peer for local development and
// integration tests: the same WebSocket endpoint shape, relay rules and
// media blob serving as the production backend, without any of its
// persistence. Never deploy it.
package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Server struct {
	token  string
	hub    *hub
	engine *gin.Engine

	mediaMu sync.RWMutex
	blobs   map[string][]byte

	httpSrv *http.Server
}

// New builds a dev server that accepts connections bearing token.
func New(token string) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		token: token,
		hub:   newHub(),
		blobs: make(map[string][]byte),
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/health", s.ginHealth)
	engine.GET("/ws/chat/:thread/", s.ginWebSocket)
	engine.GET("/media/:id", s.ginMedia)
	s.engine = engine
	return s
}

// Handler exposes the routes for httptest and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.engine}
	slog.Info("dev server listening", "addr", addr)
	return s.httpSrv.ListenAndServe()
}

// RegisterMedia stores a ciphertext blob and returns its id and fetch
// path, the shape the backend embeds in media bundles.
func (s *Server) RegisterMedia(blob []byte) (id, url string) {
	id = uuid.NewString()
	s.mediaMu.Lock()
	s.blobs[id] = blob
	s.mediaMu.Unlock()
	return id, "/media/" + id
}

// Participants reports how many connections a thread currently has.
func (s *Server) Participants(threadID string) int {
	return s.hub.count(threadID)
}

// Push delivers an arbitrary event frame to every participant of a
// thread, standing in for server-originated broadcasts.
func (s *Server) Push(threadID string, payload any) {
	s.hub.relay(threadID, nil, payload)
}

func (s *Server) ginHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ginMedia(c *gin.Context) {
	s.mediaMu.RLock()
	blob, ok := s.blobs[c.Param("id")]
	s.mediaMu.RUnlock()
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", blob)
}

func (s *Server) ginWebSocket(c *gin.Context) {
	if c.Query("token") != s.token {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	threadID := c.Param("thread")
	userID := c.Query("user")
	if userID == "" {
		userID = c.Query("token")
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("upgrade failed", "thread", threadID, "error", err)
		return
	}

	cl := &client{userID: userID, conn: conn}
	s.hub.add(threadID, cl)
	slog.Info("participant joined", "thread", threadID, "user", userID)

	defer func() {
		s.hub.remove(threadID, cl)
		conn.Close()
		slog.Info("participant left", "thread", threadID, "user", userID)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleFrame(threadID, cl, data)
	}
}

// inboundFrame is the superset of fields clients send.
type inboundFrame struct {
	Type     string `json:"type"`
	ThreadID string `json:"thread_id"`
	Sender   string `json:"sender"`
	User     string `json:"user"`
	Text     string `json:"text"`
	MediaID  string `json:"media_id"`
}

func (s *Server) handleFrame(threadID string, from *client, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		slog.Warn("drop unparseable frame", "thread", threadID, "user", from.userID, "error", err)
		return
	}

	switch frame.Type {
	case "message_new":
		s.hub.relay(threadID, from, gin.H{
			"type":       "message_new",
			"id":         uuid.NewString(),
			"thread_id":  threadID,
			"sender":     frame.Sender,
			"text":       frame.Text,
			"created_at": time.Now().UTC().Format(time.RFC3339),
		})
	case "typing_start", "typing_stop":
		s.hub.relay(threadID, from, gin.H{
			"type": frame.Type,
			"user": frame.User,
		})
	case "delete_media":
		s.mediaMu.Lock()
		delete(s.blobs, frame.MediaID)
		s.mediaMu.Unlock()
		if err := from.send(gin.H{
			"type":     "media_ack",
			"media_id": frame.MediaID,
			"status":   "received",
			"success":  true,
		}); err != nil {
			slog.Warn("ack failed", "thread", threadID, "user", from.userID, "error", err)
		}
	default:
		slog.Warn("unknown frame type", "thread", threadID, "type", frame.Type)
	}
}
