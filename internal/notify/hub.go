// Package notify 把用户可见的通知和会话事件推送给已连接的管理端页面。
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"intranet_admin/pkg/log"

	"github.com/gorilla/websocket"
)

const (
	KindNotification = "notification"
	KindSession      = "session"

	LevelSuccess = "success"
	LevelError   = "error"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Sink 是通知出口。调用是 fire-and-forget 的，不返回错误。
type Sink interface {
	NotifySuccess(ctx context.Context, text string)
	NotifyError(ctx context.Context, text string)
}

// Nop 丢弃所有通知。
type Nop struct{}

func (Nop) NotifySuccess(context.Context, string) {}
func (Nop) NotifyError(context.Context, string)   {}

type sessionKey struct{}

// WithSession 把会话 ID 放进请求上下文，通知只推送给该会话的连接。
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionID 返回上下文中的会话 ID，没有时返回空串。
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Message 是推送给客户端的一条消息。
type Message struct {
	Kind  string    `json:"kind"`
	Level string    `json:"level,omitempty"`
	Text  string    `json:"text,omitempty"`
	Event string    `json:"event,omitempty"`
	Time  time.Time `json:"time"`
}

type client struct {
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
}

// Hub 按会话维护 websocket 连接。消息只发给发起请求的会话，消费过慢的连接会被断开。
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*client]struct{}
	now      func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*client]struct{}),
		now:      time.Now,
	}
}

// NotifySuccess 记录成功通知，并推送给 ctx 所属会话。
func (h *Hub) NotifySuccess(ctx context.Context, text string) {
	sessionID := SessionID(ctx)
	log.Infow("notification", "level", LevelSuccess, "text", text, "sessionId", sessionID)
	h.Send(sessionID, Message{Kind: KindNotification, Level: LevelSuccess, Text: text})
}

// NotifyError 记录失败通知，并推送给 ctx 所属会话。
func (h *Hub) NotifyError(ctx context.Context, text string) {
	sessionID := SessionID(ctx)
	log.Warnw("notification", "level", LevelError, "text", text, "sessionId", sessionID)
	h.Send(sessionID, Message{Kind: KindNotification, Level: LevelError, Text: text})
}

// Send 把消息发给某会话的所有连接，不阻塞调用方。sessionID 为空时什么也不做。
func (h *Hub) Send(sessionID string, msg Message) {
	if sessionID == "" {
		return
	}
	payload, err := h.encode(msg)
	if err != nil {
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.sessions[sessionID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Warnw("dropping slow websocket client", "sessionId", sessionID, "remote", c.conn.RemoteAddr().String())
		h.remove(c)
	}
}

// EndSession 通知该会话的连接会话已结束，然后断开它们。登出时调用。
func (h *Hub) EndSession(sessionID, event string) {
	payload, err := h.encode(Message{Kind: KindSession, Event: event})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.sessions[sessionID] {
		select {
		case c.send <- payload:
		default:
		}
		close(c.send)
	}
	delete(h.sessions, sessionID)
}

func (h *Hub) encode(msg Message) ([]byte, error) {
	if msg.Time.IsZero() {
		msg.Time = h.now()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error("marshal notification failed", err)
		return nil, err
	}
	return payload, nil
}

// ClientCount 返回当前连接总数。
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.sessions {
		n += len(clients)
	}
	return n
}

// Serve 接管一个属于 sessionID 的已升级连接，直到连接关闭、会话结束或 ctx 结束才返回。
func (h *Hub) Serve(ctx context.Context, sessionID string, conn *websocket.Conn) {
	c := &client{sessionID: sessionID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	clients, ok := h.sessions[sessionID]
	if !ok {
		clients = make(map[*client]struct{})
		h.sessions[sessionID] = clients
	}
	clients[c] = struct{}{}
	h.mu.Unlock()
	log.Infow("websocket client connected", "sessionId", sessionID, "remote", conn.RemoteAddr().String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readLoop(c)
	}()
	h.writeLoop(ctx, c, done)
	h.remove(c)
	_ = conn.Close()
	log.Infow("websocket client disconnected", "sessionId", sessionID, "remote", conn.RemoteAddr().String())
}

// readLoop 只处理控制帧，客户端发送的数据被丢弃。
func (h *Hub) readLoop(c *client) {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(ctx context.Context, c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.sessions[c.sessionID]
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.sessions, c.sessionID)
	}
}

// Close 断开所有连接，用于服务关闭。
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, clients := range h.sessions {
		for c := range clients {
			close(c.send)
		}
		delete(h.sessions, id)
	}
}
