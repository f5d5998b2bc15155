package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func newEngine(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(), AccessLog(zap.NewNop()), RequireBearer(token))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/leaderboard", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r *gin.Engine, method, path, auth string) int {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireBearer(t *testing.T) {
	r := newEngine("s3cret")
	if got := do(r, http.MethodGet, "/healthz", ""); got != http.StatusOK {
		t.Fatalf("healthz status=%d want=200", got)
	}
	if got := do(r, http.MethodGet, "/api/v1/leaderboard", ""); got != http.StatusUnauthorized {
		t.Fatalf("missing token status=%d want=401", got)
	}
	if got := do(r, http.MethodGet, "/api/v1/leaderboard", "Bearer nope"); got != http.StatusUnauthorized {
		t.Fatalf("wrong token status=%d want=401", got)
	}
	if got := do(r, http.MethodGet, "/api/v1/leaderboard", "Bearer s3cret"); got != http.StatusOK {
		t.Fatalf("valid token status=%d want=200", got)
	}
}

func TestRequireBearer_DisabledWithoutToken(t *testing.T) {
	r := newEngine("")
	if got := do(r, http.MethodGet, "/api/v1/leaderboard", ""); got != http.StatusOK {
		t.Fatalf("status=%d want=200", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	r := newEngine("s3cret")
	if got := do(r, http.MethodOptions, "/api/v1/leaderboard", ""); got != http.StatusNoContent {
		t.Fatalf("status=%d want=204", got)
	}
}
