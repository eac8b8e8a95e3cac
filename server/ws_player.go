package server

import (
	"net/http"
	"sync"

	"EchoFM/core/auth"
	"EchoFM/core/playback"
	"EchoFM/logger"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient wraps a connection with a write mutex. The websocket package
// allows at most one writer on a connection at a time, and snapshots are
// pushed from whichever request goroutine committed the action.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// playerHub pushes session snapshots to each user's connected devices.
type playerHub struct {
	mu    sync.RWMutex
	conns map[int64]map[*wsClient]struct{}
}

func newPlayerHub() *playerHub {
	return &playerHub{conns: make(map[int64]map[*wsClient]struct{})}
}

func (h *playerHub) add(userID int64, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*wsClient]struct{})
	}
	h.conns[userID][client] = struct{}{}
}

func (h *playerHub) remove(userID int64, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[userID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
}

// Publish sends the snapshot to every device of the user. Dead connections
// are dropped; their read loops clean up.
func (h *playerHub) Publish(userID int64, snap playback.Snapshot) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.conns[userID]))
	for client := range h.conns[userID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.send(snap); err != nil {
			logger.Debug("ws push failed", logger.Int64("userId", userID), logger.ErrorField(err))
			client.conn.Close()
		}
	}
}

// DisconnectUser closes all of a user's connections, e.g. at logout.
func (h *playerHub) DisconnectUser(userID int64) {
	h.mu.Lock()
	set := h.conns[userID]
	delete(h.conns, userID)
	h.mu.Unlock()

	for client := range set {
		client.conn.Close()
	}
}

// PlayerWSHandler handles GET /ws/player?token=... and keeps the connection
// open until the client closes it. Browsers cannot set the Authorization
// header on websocket dials, hence the query-parameter token.
func (h *APIHandler) PlayerWSHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := auth.ParseToken(token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	userID := claims.UserID
	client := &wsClient{conn: conn}
	h.hub.add(userID, client)
	defer func() {
		h.hub.remove(userID, client)
		conn.Close()
	}()

	// Send the current state immediately so a reconnecting device catches
	// up. Goes through the client's write mutex: a Publish for an action
	// committed during the handshake may already be in flight.
	if err := client.send(h.engine.Snapshot(userID)); err != nil {
		return
	}

	// Read loop solely to detect the peer closing.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
