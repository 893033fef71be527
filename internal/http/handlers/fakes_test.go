package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/farcasturd-backend/internal/auth"
	"github.com/tbourn/farcasturd-backend/internal/domain"
	"github.com/tbourn/farcasturd-backend/internal/farcaster"
	"github.com/tbourn/farcasturd-backend/internal/http/middleware"
	"github.com/tbourn/farcasturd-backend/internal/repo"
	"github.com/tbourn/farcasturd-backend/internal/services"
)

const testBase = "https://farcasturd.test"

var testTokens = auth.NewTokens("handler-test-secret", time.Hour)

// newTestDB opens a private in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newRouter mounts h the way the production router does, minus the
// observability middleware.
func newRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Session(testTokens))
	api := r.Group("/api")
	api.GET("/me", h.Me)
	api.POST("/generate", middleware.RequireSession(), h.Generate)
	api.GET("/metadata/:fid", h.Metadata)
	api.GET("/image/:fid", h.Image)
	api.POST("/mint", middleware.RequireSession(), h.Mint)
	api.GET("/config/mint-price", h.MintPrice)
	api.GET("/leaderboard", h.Leaderboard)
	api.POST("/auth/nonce", h.Nonce)
	api.POST("/auth/verify", h.Verify)
	api.POST("/webhook/mentions", h.MentionsWebhook)
	api.GET("/cron/check-mentions", h.CheckMentions)
	return r
}

func bearerFor(t *testing.T, fid int64, addr string) string {
	t.Helper()
	tok, _, err := testTokens.Issue(fid, addr)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + tok
}

// do performs a request and returns the recorder.
func do(r http.Handler, method, path, authz string, body any) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("error body: %v (%s)", err, w.Body.String())
	}
	return er
}

// ----- collaborators of the real services -----

type stubProfiles map[int64]farcaster.Profile

func (s stubProfiles) Profile(_ context.Context, fid int64) (*farcaster.Profile, error) {
	p, found := s[fid]
	if !found {
		return nil, farcaster.ErrUserNotFound
	}
	return &p, nil
}

type stubImages struct {
	calls int
	err   error
}

func (s *stubImages) Generate(context.Context, string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("\x89PNG fake"), nil
}

// ----- service fakes -----

type fakeArtifacts struct {
	stored map[int64]*domain.Artifact
	err    error
}

func (f *fakeArtifacts) EnsureArtifact(_ context.Context, fid int64) (*domain.Artifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Artifact{FID: fid, Prompt: "p"}, nil
}

func (f *fakeArtifacts) GetArtifact(_ context.Context, fid int64) (*domain.Artifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	if a, found := f.stored[fid]; found {
		return a, nil
	}
	return nil, domain.ErrArtifactNotFound
}

func (f *fakeArtifacts) HasArtifact(_ context.Context, fid int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, found := f.stored[fid]
	return found, nil
}

type fakeMe struct {
	me  *services.Me
	err error
	got int64
}

func (f *fakeMe) Me(_ context.Context, fid int64) (*services.Me, error) {
	f.got = fid
	if f.err != nil {
		return nil, f.err
	}
	m := *f.me
	m.FID = fid
	return &m, nil
}

type fakePrice struct {
	q   services.PriceQuote
	err error
}

func (f fakePrice) Quote(context.Context) (services.PriceQuote, error) { return f.q, f.err }

type fakeBoard struct {
	err       error
	statsCall int
}

func (f *fakeBoard) Leaderboard(_ context.Context, limit int) ([]services.LeaderboardEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []services.LeaderboardEntry{{Rank: 1, FID: 2, Username: "bob", TurdCount: int64(limit)}}, nil
}

func (f *fakeBoard) RecentActivity(context.Context, int) ([]services.Activity, error) {
	return []services.Activity{{ID: "1", FromFID: 1, ToFID: 2}}, nil
}

func (f *fakeBoard) UserStats(_ context.Context, fid int64) (*services.Stats, error) {
	f.statsCall++
	return &services.Stats{FID: fid, Received: 3, Sent: 1}, nil
}

type fakeAuth struct {
	err error
}

func (f fakeAuth) Nonce(context.Context) (string, error) { return "abc123", nil }

func (f fakeAuth) Verify(_ context.Context, req services.VerifyRequest) (*services.SignIn, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.SignIn{Token: "tok", Session: auth.Session{FID: 7, Address: "0xabc"}}, nil
}

type fakeBot struct {
	out     services.Outcome
	err     error
	got     farcaster.Cast
	sum     services.PollSummary
	pollErr error
}

func (f *fakeBot) ProcessCast(_ context.Context, c farcaster.Cast) (services.Outcome, error) {
	f.got = c
	return f.out, f.err
}

func (f *fakeBot) PollMentions(context.Context) (services.PollSummary, error) {
	return f.sum, f.pollErr
}
