package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"intranet_admin/internal/authgate"
	applog "intranet_admin/pkg/log"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	applog.Init("error", "console", "")
	os.Exit(m.Run())
}

func doReq(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// withSnapshot 模拟 AuthMiddleware 注入的会话。
func withSnapshot(sessionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("snapshot", authgate.Snapshot{
			State:   authgate.StateAuthenticated,
			Session: &authgate.Session{ID: sessionID, UserID: "u1", Email: "alice@example.com"},
			Role:    "admin",
		})
		c.Set("isAdmin", true)
		c.Next()
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return env
}

