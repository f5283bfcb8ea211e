package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/ayusman/formcoach/internal/exercise"
	"github.com/ayusman/formcoach/internal/metrics"
	"github.com/ayusman/formcoach/internal/pose"
	"github.com/ayusman/formcoach/internal/session"
)

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, ts *httptest.Server) *wsClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })

	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(event string, data interface{}) {
	c.t.Helper()

	msg := map[string]interface{}{"event": event}
	if data != nil {
		msg["data"] = data
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.t.Fatalf("failed to send %s: %v", event, err)
	}
}

func (c *wsClient) sendRaw(payload string) {
	c.t.Helper()

	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		c.t.Fatalf("failed to send raw message: %v", err)
	}
}

func (c *wsClient) receive() Message {
	c.t.Helper()

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		c.t.Fatalf("failed to read message: %v", err)
	}
	return msg
}

func (c *wsClient) snapshot() session.Snapshot {
	c.t.Helper()

	msg := c.receive()
	if msg.Event != EventStatsUpdate {
		c.t.Fatalf("expected %s, got %s (%s)", EventStatsUpdate, msg.Event, msg.Data)
	}
	var snap session.Snapshot
	if err := json.Unmarshal(msg.Data, &snap); err != nil {
		c.t.Fatalf("failed to decode snapshot: %v", err)
	}
	return snap
}

func (c *wsClient) errorMessage() string {
	c.t.Helper()

	msg := c.receive()
	if msg.Event != EventError {
		c.t.Fatalf("expected %s, got %s", EventError, msg.Event)
	}
	var data errorData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.t.Fatalf("failed to decode error: %v", err)
	}
	return data.Message
}

func pushUpFrame(angle float64) pose.Frame {
	return pose.Frame{Type: string(exercise.PushUps), Landmarks: pose.PushUpLandmarks(angle)}
}

func newSessionServer(t *testing.T, enabled func() bool) *httptest.Server {
	t.Helper()

	logger, _ := logtest.NewNullLogger()
	srv := New(Config{
		Session: session.Config{Logger: log.NewEntry(logger)},
		Enabled: enabled,
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func TestSessionHandler_Workout(t *testing.T) {
	ts := newSessionServer(t, nil)
	c := dial(t, ts)

	t.Run("frames before start are not counted", func(t *testing.T) {
		c.send(EventProcessData, pushUpFrame(180))
		snap := c.snapshot()

		if snap.IsActive {
			t.Error("session should not be active before start")
		}
		if snap.Feedback != session.FeedbackIdle {
			t.Errorf("feedback = %q, want %q", snap.Feedback, session.FeedbackIdle)
		}
	})

	t.Run("start activates the session", func(t *testing.T) {
		c.send(EventStartSession, nil)
		snap := c.snapshot()

		if !snap.IsActive || snap.Feedback != session.FeedbackStart {
			t.Errorf("got %+v, want active with %q", snap, session.FeedbackStart)
		}
	})

	t.Run("push-up is counted", func(t *testing.T) {
		var snap session.Snapshot
		for _, a := range []float64{180, 80, 180} {
			c.send(EventProcessData, pushUpFrame(a))
			snap = c.snapshot()
		}

		if snap.Reps != 1 {
			t.Errorf("reps = %d, want 1", snap.Reps)
		}
	})

	t.Run("stop completes with a report", func(t *testing.T) {
		c.send(EventStopSession, nil)
		snap := c.snapshot()

		if !snap.Completed || snap.IsActive {
			t.Errorf("got %+v, want completed", snap)
		}
		if snap.Report == nil {
			t.Fatal("expected a report after stop")
		}
		if snap.Report.TotalFrames != 3 {
			t.Errorf("totalFrames = %d, want 3", snap.Report.TotalFrames)
		}
	})
}

func TestSessionHandler_InvalidMessages(t *testing.T) {
	ts := newSessionServer(t, nil)
	c := dial(t, ts)

	c.sendRaw("not json")
	if msg := c.errorMessage(); msg != "invalid message" {
		t.Errorf("error = %q, want %q", msg, "invalid message")
	}

	c.send("dance", nil)
	if msg := c.errorMessage(); !strings.Contains(msg, "dance") {
		t.Errorf("error = %q, want it to name the event", msg)
	}

	c.sendRaw(`{"event":"process_data","data":{"landmarks":"nope"}}`)
	if msg := c.errorMessage(); msg != "invalid frame" {
		t.Errorf("error = %q, want %q", msg, "invalid frame")
	}

	// The connection stays usable
	c.send(EventStartSession, nil)
	if snap := c.snapshot(); !snap.IsActive {
		t.Error("expected session to start after errors")
	}
}

func TestSessionHandler_Disabled(t *testing.T) {
	var enabled atomic.Bool
	ts := newSessionServer(t, enabled.Load)
	c := dial(t, ts)

	c.send(EventStartSession, nil)
	c.snapshot()

	for _, a := range []float64{180, 80} {
		c.send(EventProcessData, pushUpFrame(a))
		c.snapshot()
	}
	c.send(EventProcessData, pushUpFrame(180))
	if snap := c.snapshot(); snap.Reps != 0 || snap.Stage != nil {
		t.Errorf("disabled handler processed frames: %+v", snap)
	}

	enabled.Store(true)
	for _, a := range []float64{180, 80} {
		c.send(EventProcessData, pushUpFrame(a))
		c.snapshot()
	}
	c.send(EventProcessData, pushUpFrame(180))
	if snap := c.snapshot(); snap.Reps != 1 {
		t.Errorf("reps = %d after enabling, want 1", snap.Reps)
	}
}

func TestSessionHandler_IndependentConnections(t *testing.T) {
	ts := newSessionServer(t, nil)
	a := dial(t, ts)
	b := dial(t, ts)

	a.send(EventStartSession, nil)
	a.snapshot()
	for _, angle := range []float64{180, 80} {
		a.send(EventProcessData, pushUpFrame(angle))
		a.snapshot()
	}

	b.send(EventProcessData, pushUpFrame(180))
	snap := b.snapshot()
	if snap.IsActive || snap.Reps != 0 {
		t.Errorf("second connection shares state: %+v", snap)
	}
}

func TestSessionHandler_Connections(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	srv := New(Config{Session: session.Config{Logger: log.NewEntry(logger)}})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := dial(t, ts)
	// A round trip guarantees the handler has registered the connection
	c.send(EventStartSession, nil)
	c.snapshot()

	if got := srv.Connections(); got != 1 {
		t.Errorf("Connections() = %d, want 1", got)
	}

	c.conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Connections() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := srv.Connections(); got != 0 {
		t.Errorf("Connections() = %d after close, want 0", got)
	}
}

func TestSessionHandler_Shutdown(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	m := metrics.New()
	var completed atomic.Int32

	srv := New(Config{
		Metrics: m,
		Session: session.Config{
			Logger:     log.NewEntry(logger),
			OnComplete: func(session.Summary) { completed.Add(1) },
		},
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := dial(t, ts)
	c.send(EventStartSession, nil)
	if snap := c.snapshot(); !snap.IsActive {
		t.Fatalf("session not active: %+v", snap)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.CloseSessions(ctx); err != nil {
		t.Fatalf("CloseSessions() error = %v", err)
	}

	// Handlers have returned by the time CloseSessions does
	if got := srv.Connections(); got != 0 {
		t.Errorf("Connections() = %d after CloseSessions, want 0", got)
	}
	if got := m.ActiveSessions.Load(); got != 0 {
		t.Errorf("ActiveSessions = %d after CloseSessions, want 0", got)
	}
	if got := completed.Load(); got != 0 {
		t.Errorf("OnComplete called %d times for an abandoned session", got)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := c.conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("client read error = %v, want going-away close", err)
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail after CloseSessions")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("dial after CloseSessions: resp = %v, want 503", resp)
	}
}
