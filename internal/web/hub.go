package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/text/language"

	"dugo-banana-studio/internal/i18n"
	"dugo-banana-studio/internal/studio"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

type eventMessage struct {
	Type    studio.EventKind `json:"type"`
	Session sessionView      `json:"session"`
}

type wsClient struct {
	conn      *websocket.Conn
	sessionID string
	lang      language.Tag
	send      chan []byte
}

// Hub fans studio events out to the websocket clients watching a session.
// It implements studio.Notifier.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{
		clients: make(map[string]map[*wsClient]struct{}),
		logger:  logger,
	}
}

// Notify never blocks: a client whose buffer is full misses the event.
func (h *Hub) Notify(e studio.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[e.SessionID] {
		payload, err := json.Marshal(eventMessage{Type: e.Kind, Session: newSessionView(e.Snapshot, c.lang)})
		if err != nil {
			h.logger.Error("ws encode failed", "err", err)
			return
		}
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("ws client too slow, event dropped", "session", e.SessionID, "type", e.Kind)
		}
	}
}

// Clients reports how many connections watch sessionID.
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, id)
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.sessionID]
	if !ok {
		set = make(map[*wsClient]struct{})
		h.clients[c.sessionID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.sessionID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.sessionID)
	}
}

// serve upgrades the request and pumps events until the peer goes away.
// The current snapshot is sent first.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, snap studio.Snapshot) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}

	c := &wsClient{
		conn:      conn,
		sessionID: snap.ID,
		lang:      i18n.FromContext(r.Context()),
		send:      make(chan []byte, sendBuffer),
	}
	if payload, err := json.Marshal(eventMessage{Type: studio.EventState, Session: newSessionView(snap, c.lang)}); err == nil {
		c.send <- payload
	}
	h.register(c)
	h.logger.Info("ws connected", "session", c.sessionID)

	go h.writePump(c)
	h.readPump(c)
}

// readPump only drains control frames; clients talk to the REST API.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.logger.Info("ws disconnected", "session", c.sessionID)
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("ws read failed", "session", c.sessionID, "err", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Warn("ws write failed", "session", c.sessionID, "err", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
