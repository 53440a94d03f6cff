package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"intranet_admin/internal/authgate"
	"intranet_admin/internal/listview"
	"intranet_admin/internal/service"

	"github.com/gin-gonic/gin"
)

// ListConfig 是列表接口的分页参数边界。
type ListConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// mapServiceError 把 Service 层哨兵错误转换为 HTTP 状态码和对外消息。
// 参数校验错误的消息由服务层构造，直接返回给页面；其余错误使用固定口径。
func mapServiceError(err error) (httpStatus int, message string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, service.ErrSessionInvalid):
		return http.StatusUnauthorized, "Session is invalid or expired"
	case errors.Is(err, service.ErrUserAlreadyExists):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict, "Record already exists"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Record not found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func respondError(c *gin.Context, err error) {
	status, msg := mapServiceError(err)
	c.JSON(status, gin.H{
		"code":    status,
		"message": msg,
	})
}

func respondBadBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    http.StatusBadRequest,
		"message": "Invalid request body",
	})
}

// extractBearerToken 从 Authorization 请求头提取 Bearer Token。
// 期望格式：Authorization: Bearer <token>
func extractBearerToken(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	if strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("empty token")
	}
	return parts[1], nil
}

// getSnapshotFromContext 读取 AuthMiddleware 注入的会话解析结果。
// 上下文异常时直接写错误响应并返回 false，调用方只需 `if !ok { return }`。
func getSnapshotFromContext(c *gin.Context) (authgate.Snapshot, bool) {
	val, exists := c.Get("snapshot")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    http.StatusUnauthorized,
			"message": "Session not found in context",
		})
		return authgate.Snapshot{}, false
	}
	snap, ok := val.(authgate.Snapshot)
	if !ok || snap.Session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to read session",
		})
		return authgate.Snapshot{}, false
	}
	return snap, true
}

// parseViewState 从查询参数构造列表视图状态：
//
//	search=...&primary=...&filter[key]=value&recencyDays=7|never&page=1&size=10
//
// 无法解析的数字按未设置处理，页大小被限制在 MaxPageSize 以内。
func parseViewState(c *gin.Context, cfg ListConfig) listview.ViewState {
	state := listview.ViewState{
		Search:   c.Query("search"),
		Primary:  c.Query("primary"),
		Filters:  c.QueryMap("filter"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "size", cfg.DefaultPageSize),
	}

	switch raw := strings.TrimSpace(c.Query("recencyDays")); {
	case raw == "" || strings.EqualFold(raw, listview.AllValue):
	case strings.EqualFold(raw, "never"):
		never := listview.NeverDays
		state.RecencyDays = &never
	default:
		if days, err := strconv.Atoi(raw); err == nil && days >= listview.NeverDays {
			state.RecencyDays = &days
		}
	}

	if state.Page < 1 {
		state.Page = 1
	}
	if state.PageSize <= 0 {
		state.PageSize = cfg.DefaultPageSize
	}
	if cfg.MaxPageSize > 0 && state.PageSize > cfg.MaxPageSize {
		state.PageSize = cfg.MaxPageSize
	}
	return state
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
