package handler

import (
	"net/http"

	"intranet_admin/internal/service"
	"intranet_admin/pkg/log"

	"github.com/gin-gonic/gin"
)

// AuthHandler 负责注册、登录、刷新、登出和当前会话接口。
type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignUpRequest 是注册接口请求体。角色不由客户端决定。
type SignUpRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	FullName   string `json:"fullName" binding:"required"`
	Department string `json:"department"`
}

// SignInRequest 是登录接口请求体。
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 是刷新接口请求体。
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// MeResponse 是当前会话接口的响应。
type MeResponse struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsAdmin   bool   `json:"isAdmin"`
	// Fallback 为 true 表示角色查询失败，Role 是配置的回退角色。
	Fallback bool `json:"fallback"`
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("SignUp: failed to bind request: %v", err)
		respondBadBody(c)
		return
	}

	user, err := h.authService.SignUp(c.Request.Context(), service.SignUpInput{
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		Department: req.Department,
	})
	if err != nil {
		log.Warnf("SignUp: failed to register user: %v", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "User registered successfully",
		"data":    user,
	})
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("SignIn: failed to bind request: %v", err)
		respondBadBody(c)
		return
	}

	res, err := h.authService.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		log.Warnf("SignIn: failed to sign in: %v", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Login successful",
		"data":    res,
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Refresh: failed to bind request: %v", err)
		respondBadBody(c)
		return
	}

	access, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		log.Warnf("Refresh: failed to refresh token: %v", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Token refreshed",
		"data":    gin.H{"accessToken": access},
	})
}

// SignOut 销毁当前会话。会话变化由 AuthService 通知 gate 和视图状态。
func (h *AuthHandler) SignOut(c *gin.Context) {
	token, err := extractBearerToken(c.GetHeader("Authorization"))
	if err != nil {
		log.Warnf("SignOut: invalid authorization header: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    http.StatusUnauthorized,
			"message": "Invalid authorization header",
		})
		return
	}

	if err := h.authService.SignOut(c.Request.Context(), token); err != nil {
		log.Warnf("SignOut: failed to sign out: %v", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Logout successful",
	})
}

// Me 返回 AuthMiddleware 解析出的会话和角色。
func (h *AuthHandler) Me(c *gin.Context) {
	snap, ok := getSnapshotFromContext(c)
	if !ok {
		return
	}
	isAdmin, _ := c.Get("isAdmin")
	admin, _ := isAdmin.(bool)

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": MeResponse{
			SessionID: snap.Session.ID,
			UserID:    snap.Session.UserID,
			Email:     snap.Session.Email,
			Role:      snap.Role,
			IsAdmin:   admin,
			Fallback:  snap.Fallback,
		},
	})
}
