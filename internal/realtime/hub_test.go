package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mediconnect/telehealth-platform/internal/http/middleware"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

func newHubServer(t *testing.T, hub *Hub, userID string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID != "" {
			r = r.WithContext(middleware.WithUser(r.Context(), middleware.UserClaims{UserID: userID, Role: "patient"}))
		}
		hub.HandleWS(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForConnections(t *testing.T, hub *Hub, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ConnectionCount(userID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("connection count for %s never reached %d", userID, want)
}

func TestHubPushToConnectedUser(t *testing.T) {
	hub := NewHub(logging.New("error"))
	srv := newHubServer(t, hub, "user-1")
	conn := dial(t, srv)
	waitForConnections(t, hub, "user-1", 1)

	payload := map[string]string{"title": "Reminder"}
	if !hub.PushToUser("user-1", payload) {
		t.Fatal("PushToUser = false, want true for connected user")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["title"] != "Reminder" {
		t.Errorf("payload = %v", got)
	}
}

func TestHubPushToDisconnectedUser(t *testing.T) {
	hub := NewHub(logging.New("error"))
	if hub.PushToUser("nobody", map[string]string{"x": "y"}) {
		t.Error("PushToUser = true for user with no connections")
	}
}

func TestHubMultipleConnectionsPerUser(t *testing.T) {
	hub := NewHub(logging.New("error"))
	srv := newHubServer(t, hub, "user-1")
	c1 := dial(t, srv)
	c2 := dial(t, srv)
	waitForConnections(t, hub, "user-1", 2)

	if !hub.PushToUser("user-1", map[string]string{"n": "1"}) {
		t.Fatal("push failed")
	}
	for _, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("connection missed push: %v", err)
		}
	}
}

func TestHubRemovesClosedConnections(t *testing.T) {
	hub := NewHub(logging.New("error"))
	srv := newHubServer(t, hub, "user-1")
	conn := dial(t, srv)
	waitForConnections(t, hub, "user-1", 1)

	conn.Close()
	waitForConnections(t, hub, "user-1", 0)
}

func TestHubRejectsUnauthenticatedUpgrade(t *testing.T) {
	hub := NewHub(logging.New("error"))
	srv := newHubServer(t, hub, "")

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}
