package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/spikewatch/spikewatch/internal/api"
	"github.com/spikewatch/spikewatch/internal/runner"
	"github.com/spikewatch/spikewatch/internal/store"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins — callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients on every push.
type Message struct {
	Event string            `json:"event"`
	Data  api.StatusMessage `json:"data"`
}

// Hub streams scan status to WebSocket clients. Pushes are event-driven:
// the runner pulses its updates channel on scan start, on every throttled
// progress step, and on completion, and the hub pushes the status payload
// the moment a pulse arrives. A keepalive interval pushes during idle
// stretches so late-joining UIs converge even when nothing is scanning.
type Hub struct {
	runner    *runner.Runner
	store     *store.Store
	keepalive time.Duration

	mu       sync.RWMutex
	sessions map[*session]struct{}
}

// session is one connected WebSocket client and its outgoing queue.
type session struct {
	conn *websocket.Conn
	out  chan []byte
}

// New creates a Hub fed by run's update pulses, with keepalive pushes in
// between.
func New(run *runner.Runner, st *store.Store, keepalive time.Duration) *Hub {
	return &Hub{
		runner:    run,
		store:     st,
		keepalive: keepalive,
		sessions:  make(map[*session]struct{}),
	}
}

// Run drives the push loop: one push per runner pulse, plus keepalives.
// Blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.keepalive)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case <-h.runner.Updates():
			h.push()
			t.Reset(h.keepalive) // a pulse already refreshed every client
		case <-t.C:
			h.push()
		}
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// The current status goes out immediately on connect, so a UI never waits
// for the first scan event. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	s := &session{
		conn: conn,
		out:  make(chan []byte, sendBufSize),
	}
	h.attach(s)
	defer h.detach(s)

	if payload, err := h.payload(); err == nil {
		s.offer(payload)
	}

	go s.writeLoop()
	s.readLoop() // blocks until the connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) attach(s *session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) detach(s *session) {
	h.mu.Lock()
	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		close(s.out)
	}
	h.mu.Unlock()
}

// push sends the current status payload to every session. Sessions whose
// queue is full are disconnected rather than allowed to stall the rest.
func (h *Hub) push() {
	payload, err := h.payload()
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := make([]*session, 0, len(h.sessions))
	for s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if !s.offer(payload) {
			h.detach(s)
		}
	}
}

func (h *Hub) payload() ([]byte, error) {
	return json.Marshal(Message{
		Event: "status",
		Data:  api.BuildStatus(h.runner, h.store),
	})
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		close(s.out)
		delete(h.sessions, s)
	}
}

// offer queues payload without blocking; false means the queue is full.
func (s *session) offer(payload []byte) bool {
	select {
	case s.out <- payload:
		return true
	default:
		return false
	}
}

// writeLoop drains the session's queue onto the wire and keeps the
// connection alive with pings. Runs in its own goroutine per session.
func (s *session) writeLoop() {
	pings := time.NewTicker(pingPeriod)
	defer func() {
		pings.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case payload, open := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !open {
				// Queue closed: hub shutdown or slow-client disconnect.
				s.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-pings.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop consumes control frames (pong, close) and detects disconnects.
// Clients have nothing to say — the stream is one-way.
func (s *session) readLoop() {
	defer s.conn.Close()
	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			break
		}
	}
}
