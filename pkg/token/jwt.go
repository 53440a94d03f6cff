package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType 常量，用于区分访问令牌和刷新令牌
// 防止攻击者拿 refresh token 冒充 access token 来访问 API
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const issuer = "intranet-admin"

// ErrTokenType 表示令牌类型与期望不符。
var ErrTokenType = errors.New("unexpected token type")

// JWTManager 是 JWT 管理器，负责生成和验证 JWT
type JWTManager struct {
	secretKey            []byte
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
}

// CustomClaims 是自定义的 Claims。
// 角色不写入令牌：每次导航都通过数据服务按用户 ID 查询角色。
// RegisteredClaims.ID (jti) 即会话 ID，access/refresh 两个令牌共享同一会话。
type CustomClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// SessionID 返回令牌所属会话。
func (c *CustomClaims) SessionID() string {
	return c.ID
}

// NewJWTManager 创建一个新的 JWTManager
func NewJWTManager(secretKey string, accessTokenDuration, refreshTokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:            []byte(secretKey),
		accessTokenDuration:  accessTokenDuration,
		refreshTokenDuration: refreshTokenDuration,
	}
}

// RefreshTokenDuration 返回刷新令牌有效期，会话存储的 TTL 与之一致。
func (manager *JWTManager) RefreshTokenDuration() time.Duration {
	return manager.refreshTokenDuration
}

// GenerateToken 为会话生成访问令牌和刷新令牌
func (manager *JWTManager) GenerateToken(sessionID, userID, email string) (string, string, error) {
	now := time.Now()

	accessToken, err := manager.sign(sessionID, userID, email, TokenTypeAccess, now, manager.accessTokenDuration)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := manager.sign(sessionID, userID, email, TokenTypeRefresh, now, manager.refreshTokenDuration)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// GenerateAccessToken 只生成访问令牌，刷新时使用。
func (manager *JWTManager) GenerateAccessToken(sessionID, userID, email string) (string, error) {
	return manager.sign(sessionID, userID, email, TokenTypeAccess, time.Now(), manager.accessTokenDuration)
}

func (manager *JWTManager) sign(sessionID, userID, email, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := &CustomClaims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(manager.secretKey)
}

// VerifyToken 验证令牌签名、有效期和类型
func (manager *JWTManager) VerifyToken(tokenString, expectedType string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return manager.secretKey, nil
	},
		// 只允许 HS256，防止 alg=none 等算法篡改攻击
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.TokenType != expectedType {
		return nil, ErrTokenType
	}
	return claims, nil
}
