package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcoach/internal/pose"
	"github.com/ayusman/formcoach/internal/session"
)

// Client and server events.
const (
	EventStartSession = "start_session"
	EventStopSession  = "stop_session"
	EventProcessData  = "process_data"
	EventStatsUpdate  = "stats_update"
	EventError        = "error"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message is the envelope for every WebSocket message in both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type errorData struct {
	Message string `json:"message"`
}

// closeGrace bounds the close frame written to clients on shutdown.
const closeGrace = time.Second

// SessionHandler runs one workout session per WebSocket connection.
type SessionHandler struct {
	config  session.Config
	enabled func() bool
	active  atomic.Int64

	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	closing  bool
	handlers sync.WaitGroup
}

// NewSessionHandler creates a SessionHandler. Every connection gets a session
// built from config. When enabled reports false, frames are acknowledged
// without being processed.
func NewSessionHandler(config session.Config, enabled func() bool) *SessionHandler {
	return &SessionHandler{
		config:  config,
		enabled: enabled,
		conns:   make(map[*websocket.Conn]struct{}),
	}
}

// Shutdown stops accepting connections, closes the open ones and waits for
// their handlers to return. Active sessions are abandoned without a report.
func (h *SessionHandler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for conn := range h.conns {
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		conn.Close()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.handlers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// track registers conn and its handler. It fails once Shutdown has begun, so
// no handler starts after Shutdown waits.
func (h *SessionHandler) track(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closing {
		return false
	}
	h.conns[conn] = struct{}{}
	h.handlers.Add(1)
	return true
}

func (h *SessionHandler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	h.handlers.Done()
}

func (h *SessionHandler) isClosing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closing
}

// Connections returns the number of open connections.
func (h *SessionHandler) Connections() int {
	return int(h.active.Load())
}

// ServeHTTP upgrades the request and serves the session until the client disconnects.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.isClosing() {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	if !h.track(conn) {
		return
	}
	defer h.untrack(conn)

	h.active.Add(1)
	defer h.active.Add(-1)

	sess := session.New(uuid.NewString(), h.config)
	defer sess.Close()

	logger := log.WithField("session", sess.ID())
	logger.WithField("remote", r.RemoteAddr).Info("Client connected")
	defer logger.Info("Client disconnected")

	ctx := r.Context()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Debug("Read failed")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			if h.writeError(conn, "invalid message") != nil {
				return
			}
			continue
		}

		var snap session.Snapshot
		switch msg.Event {
		case EventStartSession:
			snap = sess.Start()

		case EventStopSession:
			snap = sess.Stop()

		case EventProcessData:
			var frame pose.Frame
			if err := json.Unmarshal(msg.Data, &frame); err != nil {
				if h.writeError(conn, "invalid frame") != nil {
					return
				}
				continue
			}
			if h.enabled != nil && !h.enabled() {
				snap = sess.Snapshot()
				break
			}
			snap = sess.ProcessFrame(ctx, frame)

		default:
			if h.writeError(conn, "unknown event: "+msg.Event) != nil {
				return
			}
			continue
		}

		if err := writeEvent(conn, EventStatsUpdate, snap); err != nil {
			logger.WithError(err).Debug("Write failed")
			return
		}
	}
}

func (h *SessionHandler) writeError(conn *websocket.Conn, message string) error {
	return writeEvent(conn, EventError, errorData{Message: message})
}

func writeEvent(conn *websocket.Conn, event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(Message{Event: event, Data: raw})
}
