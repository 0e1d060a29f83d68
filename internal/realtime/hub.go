package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mediconnect/telehealth-platform/internal/http/middleware"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// client is one websocket connection owned by a user. Writes are
// serialized through mu because gorilla connections allow only one
// concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Hub tracks live websocket connections per user and pushes payloads to
// them. A user may hold several connections (multiple tabs, phone and
// laptop); a push goes to all of them.
type Hub struct {
	mu       sync.RWMutex
	conns    map[string][]*client
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		conns: make(map[string][]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by the CORS layer and the JWT on the
			// upgrade request, not here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// PushToUser sends the payload to every live connection of the user and
// reports whether at least one delivery succeeded.
func (h *Hub) PushToUser(userID string, payload any) bool {
	h.mu.RLock()
	clients := append([]*client(nil), h.conns[userID]...)
	h.mu.RUnlock()

	delivered := false
	for _, c := range clients {
		if err := c.writeJSON(payload); err != nil {
			h.logger.Debug("websocket push failed", "user_id", userID, "error", err)
			h.remove(userID, c)
			continue
		}
		delivered = true
	}
	return delivered
}

// ConnectionCount reports how many connections the user currently holds.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// HandleWS upgrades the request and keeps the connection registered
// until it closes. The user identity comes from the auth middleware.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "user_id", claims.UserID, "error", err)
		return
	}

	c := &client{conn: conn}
	h.add(claims.UserID, c)
	h.logger.Info("websocket connected", "user_id", claims.UserID)

	go h.keepAlive(claims.UserID, c)
	h.readLoop(claims.UserID, c)
}

// readLoop drains inbound frames so pings/pongs and close frames are
// processed. Clients don't send application data.
func (h *Hub) readLoop(userID string, c *client) {
	defer func() {
		h.remove(userID, c)
		c.conn.Close()
		h.logger.Info("websocket disconnected", "user_id", userID)
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) keepAlive(userID string, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		if err := c.ping(); err != nil {
			h.remove(userID, c)
			c.conn.Close()
			return
		}
	}
}

func (h *Hub) add(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[userID] = append(h.conns[userID], c)
}

func (h *Hub) remove(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.conns[userID]
	for i, existing := range clients {
		if existing == c {
			h.conns[userID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}
