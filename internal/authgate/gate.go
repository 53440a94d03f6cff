// Package authgate 决定一次导航（请求）能否进入受保护的目的地。
//
// 状态机：Loading -> {Authenticated, Unauthenticated}；
// Authenticated -> {Admitted, Redirected(AdminRequired)}。
package authgate

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// State 是会话解析状态。
type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Outcome 是对一次导航的裁决。
type Outcome string

const (
	OutcomePending         Outcome = "pending"
	OutcomeAdmitted        Outcome = "admitted"
	OutcomeRedirectSignIn  Outcome = "redirect_sign_in"
	OutcomeRedirectDefault Outcome = "redirect_default"
)

// ErrLookupFailed 包装角色查询失败的原因，仅用于审计日志。
var ErrLookupFailed = errors.New("role lookup failed")

// Policy 是从配置注入的准入策略，任何分支都不读取环境变量。
type Policy struct {
	// BypassAdminCheck 为 true 时非管理员也能进入管理员目的地，只应在非生产环境开启。
	BypassAdminCheck bool
	// LookupFailureRole 是角色查询失败时采用的角色，必须显式配置。
	LookupFailureRole string
	// AdminRole 是管理员角色名。
	AdminRole string
	// SignInPath 是未登录时的重定向目的地。
	SignInPath string
	// DefaultPath 是权限不足时的重定向目的地。
	DefaultPath string
	// LookupTimeout 限制单次角色查询的时长，为 0 时取 DefaultLookupTimeout。
	LookupTimeout time.Duration
}

// DefaultLookupTimeout 是未配置时的角色查询超时。
const DefaultLookupTimeout = 5 * time.Second

// Session 是认证提供方给出的当前会话。
type Session struct {
	ID     string
	UserID string
	Email  string
}

// Snapshot 是某一时刻的解析结果。
type Snapshot struct {
	State    State
	Session  *Session
	Role     string
	Fallback bool
}

// Decision 是准入裁决。Location 只在重定向时有值。
type Decision struct {
	Outcome  Outcome
	Location string
}

// RoleLookup 按用户 ID 查询角色，由外部数据服务实现。
type RoleLookup interface {
	LookupRole(ctx context.Context, userID string) (string, error)
}

// RoleLookupFunc 让普通函数满足 RoleLookup。
type RoleLookupFunc func(ctx context.Context, userID string) (string, error)

func (f RoleLookupFunc) LookupRole(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}

// AuditFunc 在采用回退角色时被调用。
type AuditFunc func(session Session, fallbackRole string, err error)

// Gate 组合角色解析与准入裁决。
type Gate struct {
	policy Policy
	lookup RoleLookup
	audit  AuditFunc

	group singleflight.Group

	mu       sync.Mutex
	inflight map[string]*lookupEntry
}

// lookupEntry 记录某会话当前的代数和进行中的解析数量，没有进行中的解析时条目被删除。
type lookupEntry struct {
	gen     uint64
	pending int
}

// New 创建 Gate。audit 可为 nil。
func New(policy Policy, lookup RoleLookup, audit AuditFunc) *Gate {
	if policy.AdminRole == "" {
		policy.AdminRole = "admin"
	}
	if policy.LookupTimeout <= 0 {
		policy.LookupTimeout = DefaultLookupTimeout
	}
	return &Gate{
		policy:   policy,
		lookup:   lookup,
		audit:    audit,
		inflight: make(map[string]*lookupEntry),
	}
}

// Policy 返回当前策略。
func (g *Gate) Policy() Policy {
	return g.policy
}

// Resolve 解析会话角色。调用会阻塞直到唯一一次角色查询结束（成功或失败），
// 在此之前会话处于 Loading 状态。
//
// 同一会话的并发解析共享一次查询。查询不随首个调用方的 ctx 取消，只受 LookupTimeout 限制，
// 因此某个请求中途断开不会让其他等待者拿到回退角色。查询进行期间若会话被 Supersede（例如登出），
// 结果被丢弃并返回 Unauthenticated，不会出现基于旧会话的准入结果。
func (g *Gate) Resolve(ctx context.Context, session *Session) Snapshot {
	if session == nil || strings.TrimSpace(session.ID) == "" {
		return Snapshot{State: StateUnauthenticated}
	}

	gen := g.begin(session.ID)
	key := session.ID + "#" + strconv.FormatUint(gen, 10)

	type result struct {
		role     string
		fallback bool
	}
	v, _, _ := g.group.Do(key, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.policy.LookupTimeout)
		defer cancel()
		role, err := g.lookup.LookupRole(lookupCtx, session.UserID)
		if err != nil || strings.TrimSpace(role) == "" {
			if err == nil {
				err = errors.New("empty role")
			}
			if g.audit != nil {
				g.audit(*session, g.policy.LookupFailureRole, errors.Join(ErrLookupFailed, err))
			}
			return result{role: g.policy.LookupFailureRole, fallback: true}, nil
		}
		return result{role: role}, nil
	})

	if !g.end(session.ID, gen) {
		return Snapshot{State: StateUnauthenticated}
	}
	res := v.(result)
	return Snapshot{
		State:    StateAuthenticated,
		Session:  session,
		Role:     res.role,
		Fallback: res.fallback,
	}
}

// Supersede 使该会话所有进行中的解析失效。会话变化（登出、重新登录）时调用。
// 没有进行中的解析时无事可做。
func (g *Gate) Supersede(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.inflight[sessionID]; ok {
		e.gen++
	}
}

func (g *Gate) begin(sessionID string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.inflight[sessionID]
	if !ok {
		e = &lookupEntry{}
		g.inflight[sessionID] = e
	}
	e.pending++
	return e.gen
}

// end 结束一次解析，返回该次解析是否仍然有效。
func (g *Gate) end(sessionID string, gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.inflight[sessionID]
	if !ok {
		return false
	}
	e.pending--
	current := e.gen == gen
	if e.pending <= 0 {
		delete(g.inflight, sessionID)
	}
	return current
}

// Decide 是纯函数：根据解析结果和目的地要求给出裁决。
func (g *Gate) Decide(snap Snapshot, requireAdmin bool) Decision {
	switch snap.State {
	case StateLoading:
		return Decision{Outcome: OutcomePending}
	case StateUnauthenticated:
		return Decision{Outcome: OutcomeRedirectSignIn, Location: g.policy.SignInPath}
	}
	if snap.Session == nil {
		return Decision{Outcome: OutcomeRedirectSignIn, Location: g.policy.SignInPath}
	}
	if requireAdmin && !g.IsAdmin(snap.Role) && !g.policy.BypassAdminCheck {
		return Decision{Outcome: OutcomeRedirectDefault, Location: g.policy.DefaultPath}
	}
	return Decision{Outcome: OutcomeAdmitted}
}

// Admit 等价于 Decide(Resolve(session), requireAdmin)。
func (g *Gate) Admit(ctx context.Context, session *Session, requireAdmin bool) (Snapshot, Decision) {
	snap := g.Resolve(ctx, session)
	return snap, g.Decide(snap, requireAdmin)
}

// IsAdmin 报告角色是否为管理员（大小写不敏感）。
func (g *Gate) IsAdmin(role string) bool {
	return strings.EqualFold(strings.TrimSpace(role), g.policy.AdminRole)
}
