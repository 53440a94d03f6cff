package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"intranet_admin/internal/authgate"
	"intranet_admin/internal/model"
	"intranet_admin/internal/repository"
	"intranet_admin/pkg/hash"
	"intranet_admin/pkg/log"
	"intranet_admin/pkg/token"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SignUpInput 是注册参数。Role 为空时为普通用户，HTTP 注册接口不会设置它。
type SignUpInput struct {
	Email      string
	Password   string
	FullName   string
	Department string
	Role       string
}

// SignInResult 是登录结果。
type SignInResult struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         *model.User `json:"user"`
}

// SessionChangeFunc 在会话登录或登出时被调用。
type SessionChangeFunc func(event repository.SessionEvent)

// AuthService 是认证提供方：会话的创建、校验、销毁和变化通知。
type AuthService interface {
	SignUp(ctx context.Context, in SignUpInput) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	SignOut(ctx context.Context, accessToken string) error
	// CurrentSession 校验访问令牌并返回对应的会话。
	CurrentSession(ctx context.Context, accessToken string) (*authgate.Session, error)
	// OnSessionChange 注册会话变化回调，返回取消注册函数。
	OnSessionChange(fn SessionChangeFunc) (unsubscribe func())
	// LookupRole 按用户 ID 查询角色，供 authgate 使用。
	LookupRole(ctx context.Context, userID string) (string, error)
	// Listen 接收其他实例发布的会话事件，阻塞直到 ctx 结束。
	Listen(ctx context.Context) error
}

type authService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	jwtManager  *token.JWTManager
	instanceID  string
	now         func() time.Time

	mu          sync.RWMutex
	nextSubID   int
	subscribers map[int]SessionChangeFunc
}

func NewAuthService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository, jwtManager *token.JWTManager) AuthService {
	return &authService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jwtManager:  jwtManager,
		instanceID:  uuid.NewString(),
		now:         time.Now,
		subscribers: make(map[int]SessionChangeFunc),
	}
}

func (s *authService) SignUp(ctx context.Context, in SignUpInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, invalidInput("email is not valid")
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return nil, invalidInput("full name is required")
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, invalidInput("unknown role %q", in.Role)
	}

	// 1. 检查邮箱是否已注册
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("SignUp: failed to query user %q: %v", email, err)
		return nil, ErrInternal
	}
	if err == nil && existing != nil {
		return nil, ErrUserAlreadyExists
	}

	// 2. 密码哈希，长度不合法属于输入错误
	hashed, err := hash.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooShort) || errors.Is(err, hash.ErrPasswordTooLong) {
			return nil, invalidInput("%v", err)
		}
		log.Errorf("SignUp: failed to hash password: %v", err)
		return nil, ErrInternal
	}

	user := &model.User{
		Email:      email,
		Password:   hashed,
		FullName:   fullName,
		Role:       role,
		Department: strings.TrimSpace(in.Department),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		log.Errorf("SignUp: failed to create user %q: %v", email, err)
		return nil, ErrInternal
	}
	return user, nil
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	if s.jwtManager == nil {
		return nil, ErrInternal
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Errorf("SignIn: failed to query user %q: %v", email, err)
		return nil, ErrInternal
	}
	if user == nil || !hash.CheckPasswordHash(password, user.Password) {
		// 密码错误与用户不存在返回同一个错误
		return nil, ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	access, refresh, err := s.jwtManager.GenerateToken(sessionID, user.ID, user.Email)
	if err != nil {
		log.Errorf("SignIn: failed to generate token for user %q: %v", user.Email, err)
		return nil, ErrInternal
	}

	now := s.now()
	rec := repository.SessionRecord{ID: sessionID, UserID: user.ID, Email: user.Email, CreatedAt: now}
	if err := s.sessionRepo.Save(ctx, rec, s.jwtManager.RefreshTokenDuration()); err != nil {
		log.Errorf("SignIn: failed to save session for user %q: %v", user.Email, err)
		return nil, ErrInternal
	}

	// 最近登录时间只影响列表过滤，写入失败不阻断登录
	if err := s.userRepo.TouchLastSignIn(ctx, user.ID, now); err != nil {
		log.Warnw("failed to record last sign-in", "userId", user.ID, "error", err)
	} else {
		user.LastSignInAt = &now
	}

	s.emit(ctx, repository.SessionEvent{Type: repository.SessionEventSignedIn, SessionID: sessionID, UserID: user.ID})
	return &SignInResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtManager.VerifyToken(refreshToken, token.TokenTypeRefresh)
	if err != nil {
		return "", ErrSessionInvalid
	}
	if _, err := s.activeSession(ctx, claims.SessionID()); err != nil {
		return "", err
	}

	access, err := s.jwtManager.GenerateAccessToken(claims.SessionID(), claims.UserID, claims.Email)
	if err != nil {
		log.Errorf("Refresh: failed to generate access token: %v", err)
		return "", ErrInternal
	}
	return access, nil
}

func (s *authService) SignOut(ctx context.Context, accessToken string) error {
	claims, err := s.jwtManager.VerifyToken(accessToken, token.TokenTypeAccess)
	if err != nil {
		return ErrSessionInvalid
	}
	if err := s.sessionRepo.Delete(ctx, claims.SessionID()); err != nil {
		log.Errorf("SignOut: failed to delete session %s: %v", claims.SessionID(), err)
		return ErrInternal
	}
	s.emit(ctx, repository.SessionEvent{Type: repository.SessionEventSignedOut, SessionID: claims.SessionID(), UserID: claims.UserID})
	return nil
}

func (s *authService) CurrentSession(ctx context.Context, accessToken string) (*authgate.Session, error) {
	claims, err := s.jwtManager.VerifyToken(accessToken, token.TokenTypeAccess)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	rec, err := s.activeSession(ctx, claims.SessionID())
	if err != nil {
		return nil, err
	}
	return &authgate.Session{ID: rec.ID, UserID: rec.UserID, Email: rec.Email}, nil
}

func (s *authService) LookupRole(ctx context.Context, userID string) (string, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func (s *authService) OnSessionChange(fn SessionChangeFunc) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

func (s *authService) Listen(ctx context.Context) error {
	return s.sessionRepo.Subscribe(ctx, func(event repository.SessionEvent) {
		// 本实例发布的事件已在 emit 中分发过
		if event.Origin == s.instanceID {
			return
		}
		s.dispatch(event)
	})
}

func (s *authService) activeSession(ctx context.Context, sessionID string) (*repository.SessionRecord, error) {
	rec, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionInvalid
		}
		log.Errorf("failed to load session %s: %v", sessionID, err)
		return nil, ErrInternal
	}
	return rec, nil
}

// emit 先在本实例分发，再发布给其他实例；发布失败只记日志。
func (s *authService) emit(ctx context.Context, event repository.SessionEvent) {
	event.Origin = s.instanceID
	s.dispatch(event)
	if err := s.sessionRepo.Publish(ctx, event); err != nil {
		log.Warnw("failed to publish session event", "type", event.Type, "sessionId", event.SessionID, "error", err)
	}
}

func (s *authService) dispatch(event repository.SessionEvent) {
	s.mu.RLock()
	fns := make([]SessionChangeFunc, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(event)
	}
}
