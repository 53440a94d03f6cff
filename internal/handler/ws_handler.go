package handler

import (
	"net/http"

	"intranet_admin/internal/notify"
	"intranet_admin/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler 把已通过认证的连接升级为 websocket 并交给通知中心。
type WSHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler 创建 WSHandler。allowedOrigins 为空时只接受同源请求。
func NewWSHandler(hub *notify.Hub, allowedOrigins ...string) *WSHandler {
	h := &WSHandler{hub: hub}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]struct{}, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[o] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			_, ok := allowed[r.Header.Get("Origin")]
			return ok
		}
	}
	return h
}

// Serve 把连接绑定到当前会话，只有该会话的通知会推送到这条连接。
func (h *WSHandler) Serve(c *gin.Context) {
	snap, ok := getSnapshotFromContext(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时已经写过响应
		log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	h.hub.Serve(c.Request.Context(), snap.Session.ID, conn)
}
