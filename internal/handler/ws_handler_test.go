package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"intranet_admin/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestWSHandler_RequiresSession(t *testing.T) {
	hub := notify.NewHub()
	r := gin.New()
	r.GET("/ws", NewWSHandler(hub).Serve)

	w := doReq(r, http.MethodGet, "/ws", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("no client may register without a session")
	}
}

func TestWSHandler_BindsConnectionToSession(t *testing.T) {
	hub := notify.NewHub()
	defer hub.Close()
	r := gin.New()
	r.GET("/ws/alice", withSnapshot("s1"), NewWSHandler(hub).Serve)
	r.GET("/ws/bob", withSnapshot("s2"), NewWSHandler(hub).Serve)
	srv := httptest.NewServer(r)
	defer srv.Close()

	dial := func(path string) *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+path, nil)
		if err != nil {
			t.Fatalf("dial %s: %v", path, err)
		}
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	}
	alice := dial("/ws/alice")
	bob := dial("/ws/bob")

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 clients, got %d", hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.NotifySuccess(notify.WithSession(context.Background(), "s1"), "Company created")
	hub.NotifySuccess(notify.WithSession(context.Background(), "s2"), "News item deleted")

	for conn, want := range map[*websocket.Conn]string{alice: "Company created", bob: "News item deleted"} {
		var msg notify.Message
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Text != want {
			t.Fatalf("expected %q, got %q", want, msg.Text)
		}
	}
}
