package middleware

import (
	"net/http"

	"intranet_admin/internal/authgate"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware 是管理员准入中间件，必须在 AuthMiddleware 之后执行。
// 非管理员返回 403 并给出默认页地址；配置了 bypass_admin_check 时放行。
func AdminAuthMiddleware(gate *authgate.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		val, exists := c.Get("snapshot")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "Session not found in context",
			})
			return
		}
		snap, ok := val.(authgate.Snapshot)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    http.StatusInternalServerError,
				"message": "Failed to read session",
			})
			return
		}

		decision := gate.Decide(snap, true)
		if decision.Outcome != authgate.OutcomeAdmitted {
			abortWithDecision(c, decision, "Forbidden: Only admin can access this resource")
			return
		}
		c.Next()
	}
}
