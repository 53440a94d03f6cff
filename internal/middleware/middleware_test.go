package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"intranet_admin/internal/authgate"
	"intranet_admin/internal/notify"
	"intranet_admin/internal/service"
	applog "intranet_admin/pkg/log"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	applog.Init("error", "console", "")
	os.Exit(m.Run())
}

type fakeSessions struct {
	sessions map[string]*authgate.Session
	err      error
}

func (f *fakeSessions) CurrentSession(ctx context.Context, accessToken string) (*authgate.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.sessions[accessToken]; ok {
		return s, nil
	}
	return nil, service.ErrSessionInvalid
}

func newGate(role string, bypass bool) *authgate.Gate {
	return authgate.New(authgate.Policy{
		BypassAdminCheck:  bypass,
		LookupFailureRole: "user",
		AdminRole:         "admin",
		SignInPath:        "/login",
		DefaultPath:       "/",
	}, authgate.RoleLookupFunc(func(ctx context.Context, userID string) (string, error) {
		return role, nil
	}), nil)
}

func newProtectedRouter(sessions SessionProvider, gate *authgate.Gate) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(sessions, gate), func(c *gin.Context) {
		snap := c.MustGet("snapshot").(authgate.Snapshot)
		c.JSON(http.StatusOK, gin.H{
			"session":       snap.Session.ID,
			"notifySession": notify.SessionID(c.Request.Context()),
			"isAdmin":       c.GetBool("isAdmin"),
		})
	})
	r.GET("/admin", AuthMiddleware(sessions, gate), AdminAuthMiddleware(gate), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func redirectOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Redirect string `json:"redirect"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
	return body.Redirect
}

var aliceSessions = &fakeSessions{sessions: map[string]*authgate.Session{
	"tok": {ID: "s1", UserID: "u1", Email: "alice@example.com"},
}}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	r := newProtectedRouter(aliceSessions, newGate("admin", false))

	w := get(r, "/me", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if got := redirectOf(t, w); got != "/login" {
		t.Fatalf("expected redirect /login, got %q", got)
	}
}

func TestAuthMiddleware_InvalidSession(t *testing.T) {
	r := newProtectedRouter(aliceSessions, newGate("admin", false))

	w := get(r, "/me", "stale")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if got := redirectOf(t, w); got != "/login" {
		t.Fatalf("expected redirect /login, got %q", got)
	}
}

func TestAuthMiddleware_ProviderFailure(t *testing.T) {
	r := newProtectedRouter(&fakeSessions{err: errors.New("redis down")}, newGate("admin", false))

	if w := get(r, "/me", "tok"); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestAuthMiddleware_Admitted(t *testing.T) {
	r := newProtectedRouter(aliceSessions, newGate("user", false))

	w := get(r, "/me", "tok")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"session":"s1"`) || !strings.Contains(w.Body.String(), `"isAdmin":false`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestAuthMiddleware_ScopesNotificationsToSession(t *testing.T) {
	r := newProtectedRouter(aliceSessions, newGate("user", false))

	w := get(r, "/me", "tok")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"notifySession":"s1"`) {
		t.Fatalf("request context must carry the session id: %s", w.Body.String())
	}
}

func TestAuthMiddleware_WebsocketQueryToken(t *testing.T) {
	r := newProtectedRouter(aliceSessions, newGate("admin", false))

	req := httptest.NewRequest(http.MethodGet, "/me?access_token=tok", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("query token must be ignored outside websocket upgrades, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/me?access_token=tok", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAdminAuthMiddleware(t *testing.T) {
	w := get(newProtectedRouter(aliceSessions, newGate("user", false)), "/admin", "tok")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if got := redirectOf(t, w); got != "/" {
		t.Fatalf("expected redirect /, got %q", got)
	}

	if w := get(newProtectedRouter(aliceSessions, newGate("admin", false)), "/admin", "tok"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", w.Code)
	}

	if w := get(newProtectedRouter(aliceSessions, newGate("user", true)), "/admin", "tok"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with bypass, got %d", w.Code)
	}
}

func TestAdminAuthMiddleware_LookupFailureRole(t *testing.T) {
	failing := authgate.RoleLookupFunc(func(ctx context.Context, userID string) (string, error) {
		return "", errors.New("db down")
	})
	policy := authgate.Policy{LookupFailureRole: "user", AdminRole: "admin", SignInPath: "/login", DefaultPath: "/"}
	gate := authgate.New(policy, failing, nil)

	if w := get(newProtectedRouter(aliceSessions, gate), "/admin", "tok"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with fail-closed role, got %d", w.Code)
	}
}

func TestAdminAuthMiddleware_NoSnapshot(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AdminAuthMiddleware(newGate("admin", false)), func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := get(r, "/admin", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]bool{
		"Bearer abc": true,
		"bearer abc": true,
		"Basic abc":  false,
		"Bearer":     false,
		"Bearer a b": false,
		"":           false,
	}
	for header, ok := range cases {
		tok, err := extractBearerToken(header)
		if ok && (err != nil || tok != "abc") {
			t.Errorf("%q: expected abc, got %q (%v)", header, tok, err)
		}
		if !ok && err == nil {
			t.Errorf("%q: expected error", header)
		}
	}
}

func TestRequestLogger_KeepsBodyReadable(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger("/auth"))
	var seen string
	handler := func(c *gin.Context) {
		var body map[string]string
		_ = c.ShouldBindJSON(&body)
		seen = body["name"]
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
	r.POST("/items", handler)
	r.POST("/auth/sign-in", handler)

	for _, path := range []string{"/items", "/auth/sign-in"} {
		seen = ""
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"name":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK || seen != "x" {
			t.Fatalf("%s: status %d, seen %q", path, w.Code, seen)
		}
	}
}
