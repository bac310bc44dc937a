package notification

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/reservation-backend/internal/pkg/logger"
)

// newHubServer serves a minimal subscribe endpoint keyed by the user query parameter.
func newHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := hub.Register(r.URL.Query().Get("user"), conn)
		defer hub.Unregister(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHubPushAndLifecycle(t *testing.T) {
	hub := NewHub(logger.Discard())
	srv := newHubServer(t, hub)

	assert.False(t, hub.Online("u1"))

	first := dial(t, srv, "u1")
	second := dial(t, srv, "u1")
	other := dial(t, srv, "u2")
	defer other.Close()

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients["u1"]) == 2 && len(hub.clients["u2"]) == 1
	}, time.Second, 5*time.Millisecond)
	assert.True(t, hub.Online("u1"))

	n := &Notification{ID: "n-1", UserID: "u1", Kind: KindApproved, Title: "Booking approved: Court A"}
	assert.Equal(t, 2, hub.Push(n))

	for _, conn := range []*websocket.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)

		var got Notification
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, "n-1", got.ID)
		assert.Equal(t, KindApproved, got.Kind)
	}

	// u2 must not see u1's notification.
	_ = other.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)

	require.NoError(t, first.Close())
	require.NoError(t, second.Close())
	assert.Eventually(t, func() bool { return !hub.Online("u1") }, time.Second, 5*time.Millisecond)
}

func TestHubPushOffline(t *testing.T) {
	hub := NewHub(logger.Discard())
	assert.Equal(t, 0, hub.Push(&Notification{UserID: "nobody"}))
}
