package notification

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

// Client is one live WebSocket connection of a user.
type Client struct {
	ID     string
	UserID string
	conn   *websocket.Conn
	mu     sync.Mutex // serializes writes on conn
}

func (c *Client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub is the registry of online users. A user is online while at least one
// of their connections is registered.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[string]*Client // userID -> clientID -> client
	log     logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients: make(map[string]map[string]*Client),
		log:     log,
	}
}

// Register adds conn for userID and returns its client handle.
func (h *Hub) Register(userID string, conn *websocket.Conn) *Client {
	c := &Client{ID: uuid.NewString(), UserID: userID, conn: conn}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[string]*Client)
	}
	h.clients[userID][c.ID] = c
	return c
}

// Unregister removes c and closes its connection. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	conns, ok := h.clients[c.UserID]
	if ok {
		if _, present := conns[c.ID]; present {
			delete(conns, c.ID)
			if len(conns) == 0 {
				delete(h.clients, c.UserID)
			}
		} else {
			ok = false
		}
	}
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
	}
}

// Online reports whether userID has a registered connection.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// Push writes n to every connection of its user and returns how many received it.
// Connections that fail to write are unregistered.
func (h *Hub) Push(n *Notification) int {
	payload, err := json.Marshal(n)
	if err != nil {
		h.log.WithError(err).Error("marshal notification failed")
		return 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[n.UserID]))
	for _, c := range h.clients[n.UserID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if err := c.write(payload); err != nil {
			h.log.WithError(err).WithField("client_id", c.ID).Warn("push notification failed, dropping connection")
			h.Unregister(c)
			continue
		}
		delivered++
	}
	return delivered
}

// Close unregisters every client.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*Client
	for _, conns := range h.clients {
		for _, c := range conns {
			all = append(all, c)
		}
	}
	h.clients = make(map[string]map[string]*Client)
	h.mu.Unlock()

	for _, c := range all {
		_ = c.conn.Close()
	}
}
