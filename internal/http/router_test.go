package httpapi

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/farcasturd-backend/internal/auth"
	"github.com/tbourn/farcasturd-backend/internal/config"
	"github.com/tbourn/farcasturd-backend/internal/http/middleware"
)

func baseConfig() config.Config {
	return config.Config{
		APIBasePath: "/api",
		AppBaseURL:  "https://farcasturd.test",
		RateRPS:     100,
		RateBurst:   10,
		CORS:        config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:    config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newEngine(t *testing.T, deps Deps, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, deps, cfg)
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newEngine(t, Deps{}, baseConfig())

	// /health works
	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	if w := serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	if w := serve(r, httptest.NewRequest(http.MethodPost, "/health", nil)); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}

	// Unwired services answer 503 instead of panicking.
	if w := serve(r, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /api/leaderboard expected 503, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := baseConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"https://warpcast.com"}}
	r := newEngine(t, Deps{}, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://warpcast.com")
	w := serve(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://warpcast.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_FrameAncestors(t *testing.T) {
	cfg := baseConfig()
	cfg.Security.FrameAncestors = []string{"'self'", "https://warpcast.com"}
	r := newEngine(t, Deps{}, cfg)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	if csp := w.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "frame-ancestors 'self' https://warpcast.com") {
		t.Fatalf("csp=%q", csp)
	}
	if xfo := w.Header().Get("X-Frame-Options"); xfo != "" {
		t.Fatalf("X-Frame-Options must be dropped when embedding is allowed, got %q", xfo)
	}
}

func TestRegisterRoutes_SessionGuards(t *testing.T) {
	tokens := auth.NewTokens("router-secret", time.Hour)
	r := newEngine(t, Deps{Sessions: tokens}, baseConfig())

	body := `{"fid":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if w := serve(r, req); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous generate expected 401, got %d", w.Code)
	}

	tok, _, err := tokens.Issue(5, "0xabc")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	// Session passes; the unwired artifact service answers 503.
	if w := serve(r, req); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("signed-in generate expected 503, got %d", w.Code)
	}
}

func TestRegisterRoutes_CronSecret(t *testing.T) {
	cfg := baseConfig()
	cfg.Neynar.CronSecret = "tick"
	r := newEngine(t, Deps{}, cfg)

	if w := serve(r, httptest.NewRequest(http.MethodGet, "/api/cron/check-mentions", nil)); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing secret expected 401, got %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/cron/check-mentions", nil)
	req.Header.Set("Authorization", "Bearer tick")
	if w := serve(r, req); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("authorized cron expected 503 from unwired bot, got %d", w.Code)
	}
}

func TestRegisterRoutes_WebhookSignature(t *testing.T) {
	cfg := baseConfig()
	cfg.Neynar.WebhookSecret = "hook"
	r := newEngine(t, Deps{}, cfg)

	body := []byte(`{"type":"cast.created","data":{}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/mentions", bytes.NewReader(body))
	req.Header.Set(middleware.HeaderNeynarSignature, "00")
	if w := serve(r, req); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature expected 401, got %d", w.Code)
	}

	mac := hmac.New(sha512.New, []byte("hook"))
	mac.Write(body)
	req = httptest.NewRequest(http.MethodPost, "/api/webhook/mentions", bytes.NewReader(body))
	req.Header.Set(middleware.HeaderNeynarSignature, hex.EncodeToString(mac.Sum(nil)))
	if w := serve(r, req); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("signed delivery expected 503 from unwired bot, got %d", w.Code)
	}
}

func TestRegisterRoutes_RateLimitSkipsHealth(t *testing.T) {
	cfg := baseConfig()
	cfg.RateRPS = 0.001
	cfg.RateBurst = 1
	r := newEngine(t, Deps{}, cfg)

	first := serve(r, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
	second := serve(r, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
	if first.Code == http.StatusTooManyRequests || second.Code != http.StatusTooManyRequests {
		t.Fatalf("codes %d then %d", first.Code, second.Code)
	}
	for i := 0; i < 3; i++ {
		if w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil)); w.Code != http.StatusOK {
			t.Fatalf("health limited on try %d: %d", i, w.Code)
		}
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB"))) // 12 bytes
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

// Smoke test that a request traverses otel + ratelimit + security headers.
func TestPipeline_Smoke(t *testing.T) {
	cfg := baseConfig()
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour}
	r := newEngine(t, Deps{}, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w := serve(r, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if hsts := w.Header().Get("Strict-Transport-Security"); !strings.HasPrefix(hsts, "max-age=3600") {
		t.Fatalf("hsts=%q", hsts)
	}
}
