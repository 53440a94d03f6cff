package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startHub 启动一个测试服务器，连接的会话 ID 取自查询参数 session。
func startHub(t *testing.T) (*Hub, func(sessionID string) *websocket.Conn) {
	t.Helper()
	hub := NewHub()
	hub.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(r.Context(), r.URL.Query().Get("session"), conn)
	}))
	t.Cleanup(srv.Close)

	connected := 0
	dial := func(sessionID string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?session=" + sessionID
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		connected++
		require.Eventually(t, func() bool { return hub.ClientCount() == connected }, time.Second, 10*time.Millisecond)
		return conn
	}
	return hub, dial
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	var msg Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_NotifiesOriginatingSession(t *testing.T) {
	hub, dial := startHub(t)
	conn := dial("s1")
	ctx := WithSession(context.Background(), "s1")

	hub.NotifySuccess(ctx, "Empresa creada")
	hub.NotifyError(ctx, "Error al guardar")

	first := readMessage(t, conn)
	second := readMessage(t, conn)
	assert.Equal(t, KindNotification, first.Kind)
	assert.Equal(t, LevelSuccess, first.Level)
	assert.Equal(t, "Empresa creada", first.Text)
	assert.Equal(t, LevelError, second.Level)
	assert.Equal(t, 2024, first.Time.Year())
}

func TestHub_NotificationsStayInTheirSession(t *testing.T) {
	hub, dial := startHub(t)
	alice := dial("s1")
	bob := dial("s2")

	hub.NotifySuccess(WithSession(context.Background(), "s1"), "Usuario creado")
	hub.NotifyError(WithSession(context.Background(), "s2"), "Error al guardar")

	// bob 收到的第一条必须是自己的通知，alice 的通知不会串过来
	assert.Equal(t, "Error al guardar", readMessage(t, bob).Text)
	assert.Equal(t, "Usuario creado", readMessage(t, alice).Text)
}

func TestHub_NotifyWithoutSessionOnlyLogs(t *testing.T) {
	hub, dial := startHub(t)
	conn := dial("s1")

	hub.NotifySuccess(context.Background(), "Cambios guardados")
	hub.NotifySuccess(WithSession(context.Background(), "s1"), "Propio")

	assert.Equal(t, "Propio", readMessage(t, conn).Text)
}

func TestHub_EndSession(t *testing.T) {
	hub, dial := startHub(t)
	alice := dial("s1")
	bob := dial("s2")

	hub.EndSession("s1", "signed_out")

	msg := readMessage(t, alice)
	assert.Equal(t, Message{Kind: KindSession, Event: "signed_out", Time: msg.Time}, msg)
	_, _, err := alice.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived), "unexpected error: %v", err)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.NotifySuccess(WithSession(context.Background(), "s2"), "Sigue activo")
	assert.Equal(t, "Sigue activo", readMessage(t, bob).Text)
}

func TestHub_ClientRemovedOnDisconnect(t *testing.T) {
	hub, dial := startHub(t)
	conn := dial("s1")

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_NotifyWithoutClients(t *testing.T) {
	hub := NewHub()
	assert.NotPanics(t, func() { hub.NotifySuccess(WithSession(context.Background(), "s1"), "ok") })
	hub.EndSession("s1", "signed_out")
	hub.Close()
	assert.Zero(t, hub.ClientCount())
}

func TestSessionID(t *testing.T) {
	assert.Empty(t, SessionID(context.Background()))
	assert.Equal(t, "s1", SessionID(WithSession(context.Background(), "s1")))
}
