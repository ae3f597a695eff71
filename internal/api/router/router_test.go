package router

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edmundobop/plataforma-bravo-web-sub000/config"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/api/handler"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/service"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(t *testing.T) (*gin.Engine, *jwt.Manager, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Server:    config.ServerConfig{CORS: config.CORSConfig{AllowOrigins: []string{"http://localhost:5173"}}},
		Auth:      config.AuthConfig{JWTSecret: "router-test-secret", AccessTokenTTL: time.Hour},
		Upload:    config.UploadConfig{Dir: dir, BaseURL: "/uploads", MaxBytes: 1 << 20, MaxFiles: 5},
		RateLimit: config.RateLimitConfig{CredentialLimit: 3, CredentialWindow: time.Minute},
	}
	mgr := jwt.NewManager(&cfg.Auth)
	// 仅验证路由与中间件，请求不会到达 Service
	h := handler.NewHandler(&service.Service{}, nil)
	return Setup(cfg, h, mgr, Deps{}, zap.NewNop()), mgr, dir
}

func request(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _, _ := setup(t)
	w := request(r, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, _, _ := setup(t)
	paths := []struct{ method, path string }{
		{"GET", "/api/v1/solicitations"},
		{"POST", "/api/v1/checklists"},
		{"POST", "/api/v1/fillout-sessions"},
		{"POST", "/api/v1/auth/validate-credentials"},
		{"GET", "/api/v1/vehicles"},
	}
	for _, p := range paths {
		if w := request(r, p.method, p.path, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, w.Code)
		}
	}
}

func TestAutomationsRequireManager(t *testing.T) {
	r, mgr, _ := setup(t)
	token, err := mgr.GenerateAccessToken("user-1", "operator", "unit-1")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	for _, path := range []string{"/api/v1/automations", "/api/v1/audit-logs"} {
		if w := request(r, "GET", path, token); w.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", path, w.Code)
		}
	}
}

func TestEventsWithoutRedis(t *testing.T) {
	r, mgr, _ := setup(t)
	token, _ := mgr.GenerateAccessToken("user-1", "operator", "unit-1")

	w := request(r, "GET", "/api/v1/solicitations/events?access_token="+token, "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestCredentialRateLimit(t *testing.T) {
	r, _, _ := setup(t)
	var last int
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", last)
	}
}

func TestUploadsServed(t *testing.T) {
	r, _, dir := setup(t)
	if err := os.MkdirAll(filepath.Join(dir, "2026", "10"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "2026", "10", "a.png"), []byte("\x89PNG"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := request(r, "GET", "/uploads/2026/10/a.png", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != "\x89PNG" {
		t.Errorf("expected PNG body, got %q", body)
	}
}

func TestUploadsPrefix(t *testing.T) {
	tests := map[string]string{
		"/uploads":                         "/uploads",
		"/uploads/":                        "/uploads",
		"":                                 "/uploads",
		"http://localhost:8080/files":      "/files",
		"https://cdn.example.com":          "/uploads",
		"https://cdn.example.com/fotos/x/": "/fotos/x",
	}
	for in, want := range tests {
		if got := uploadsPrefix(in); got != want {
			t.Errorf("uploadsPrefix(%q): expected %q, got %q", in, want, got)
		}
	}
}
