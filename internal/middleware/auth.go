package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"intranet_admin/internal/authgate"
	"intranet_admin/internal/notify"
	"intranet_admin/internal/service"

	"github.com/gin-gonic/gin"
)

// SessionProvider 根据访问令牌给出当前会话，由 service.AuthService 实现。
type SessionProvider interface {
	CurrentSession(ctx context.Context, accessToken string) (*authgate.Session, error)
}

// AuthMiddleware 是会话认证中间件，用于保护需要登录才能访问的接口。
// 工作流程：
//  1. 从 Authorization 请求头提取 Bearer Token；websocket 握手无法设置请求头，允许 access_token 查询参数
//  2. 由 SessionProvider 校验令牌并确认服务端会话仍然存在（已登出的会话不可用）
//  3. 交给 gate 解析角色；解析期间会话被登出时视为未登录
//  4. 将 snapshot、session 和 isAdmin 注入 Gin 上下文，会话 ID 写入请求上下文供通知定向推送
//
// 未登录时返回 401，并在 redirect 字段给出登录页地址。
func AuthMiddleware(sessions SessionProvider, gate *authgate.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions == nil || gate == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    http.StatusInternalServerError,
				"message": "Internal server error",
			})
			return
		}

		tokenString, err := tokenFromRequest(c)
		if err != nil {
			abortWithDecision(c, gate.Decide(authgate.Snapshot{State: authgate.StateUnauthenticated}, false), "Invalid authorization header")
			return
		}

		sess, err := sessions.CurrentSession(c.Request.Context(), tokenString)
		if err != nil {
			if errors.Is(err, service.ErrSessionInvalid) {
				abortWithDecision(c, gate.Decide(authgate.Snapshot{State: authgate.StateUnauthenticated}, false), "Invalid or expired access token")
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    http.StatusInternalServerError,
				"message": "Internal server error",
			})
			return
		}

		snap, decision := gate.Admit(c.Request.Context(), sess, false)
		if decision.Outcome != authgate.OutcomeAdmitted {
			abortWithDecision(c, decision, "Session ended")
			return
		}

		c.Set("snapshot", snap)
		c.Set("session", snap.Session)
		c.Set("isAdmin", gate.IsAdmin(snap.Role))
		c.Request = c.Request.WithContext(notify.WithSession(c.Request.Context(), snap.Session.ID))
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		return extractBearerToken(header)
	}
	if websocketUpgrade(c.Request) {
		if t := strings.TrimSpace(c.Query("access_token")); t != "" {
			return t, nil
		}
	}
	return "", errors.New("missing authorization header")
}

func websocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// abortWithDecision 把 gate 的重定向裁决转换为 JSON 响应：
// 跳转登录页为 401，跳转默认页为 403。
func abortWithDecision(c *gin.Context, d authgate.Decision, message string) {
	status := http.StatusUnauthorized
	switch d.Outcome {
	case authgate.OutcomeRedirectDefault:
		status = http.StatusForbidden
	case authgate.OutcomePending:
		status = http.StatusServiceUnavailable
	}
	c.AbortWithStatusJSON(status, gin.H{
		"code":     status,
		"message":  message,
		"redirect": d.Location,
	})
}

// extractBearerToken 从 Authorization 请求头中提取 Bearer Token。
// 期望格式：Bearer <token>，前缀大小写不敏感。
func extractBearerToken(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	if parts[1] == "" {
		return "", errors.New("empty token")
	}
	return parts[1], nil
}
