package observer

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"FinScan/internal/domain/models"
	"FinScan/internal/domain/service"
	applogger "FinScan/pkg/logger"

	"github.com/gorilla/websocket"
)

// Envelope types pushed to websocket clients.
const (
	EnvelopeResult    = "result"
	EnvelopeCompleted = "completed"
)

// Envelope wraps every websocket message.
type Envelope struct {
	Type     string      `json:"type"`
	ScanID   string      `json:"scan_id,omitempty"`
	Strategy string      `json:"strategy,omitempty"`
	Initial  bool        `json:"initial,omitempty"`
	Data     interface{} `json:"data"`
	TS       time.Time   `json:"ts"`
}

// Hub fans scan events out to websocket clients. Slow clients drop
// messages instead of blocking the scan.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*wsClient]struct{}
	latest     *Envelope
	closed     bool
	sendBuffer int
	dropped    atomic.Int64
	l          *applogger.Logger
}

func NewHub(sendBuffer int, l *applogger.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Hub{
		clients:    make(map[*wsClient]struct{}),
		sendBuffer: sendBuffer,
		l:          l,
	}
}

var _ service.ResultObserver = (*Hub)(nil)

func (h *Hub) OnResult(_ context.Context, r models.ScanResult) error {
	h.broadcast(&Envelope{
		Type:   EnvelopeResult,
		ScanID: r.ScanID.String(),
		Data:   r,
		TS:     time.Now().UTC(),
	}, false)
	return nil
}

func (h *Hub) OnCompleted(ctx context.Context, results []models.ScanResult) error {
	env := &Envelope{Type: EnvelopeCompleted, Data: results, TS: time.Now().UTC()}
	if info, ok := service.ScanFromContext(ctx); ok {
		env.ScanID = info.ID.String()
		env.Strategy = info.Strategy
	}
	h.broadcast(env, true)
	return nil
}

// Serve registers an upgraded connection and starts its pumps. The last
// completed ranking is sent first.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &wsClient{conn: conn, send: make(chan []byte, h.sendBuffer), hub: h}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	if h.latest != nil {
		initial := *h.latest
		initial.Initial = true
		if b, err := json.Marshal(initial); err == nil {
			c.send <- b
		}
	}
	h.mu.Unlock()

	h.l.Debug("ws client connected", applogger.Int("clients", count))
	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many messages were dropped for slow clients.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(env *Envelope, keep bool) {
	b, err := json.Marshal(env)
	if err != nil {
		h.l.Error("ws envelope encode failed", applogger.Error(err))
		return
	}
	if keep {
		h.mu.Lock()
		h.latest = env
		h.mu.Unlock()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.dropped.Add(1)
		}
	}
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services control frames; clients have nothing to say.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
		c.hub.l.Debug("ws client disconnected")
	}()

	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
