// Package handlers exposes the Farcasturd HTTP API.
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results (and service sentinel errors) into HTTP responses. The
// service contracts they depend on are declared here so tests can substitute
// small fakes.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/farcasturd-backend/internal/auth"
	"github.com/tbourn/farcasturd-backend/internal/domain"
	"github.com/tbourn/farcasturd-backend/internal/farcaster"
	"github.com/tbourn/farcasturd-backend/internal/http/middleware"
	"github.com/tbourn/farcasturd-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ArtifactService generates and reads per-FID artifacts.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ArtifactService interface {
	// EnsureArtifact returns the stored artifact or generates one.
	EnsureArtifact(ctx context.Context, fid int64) (*domain.Artifact, error)
	// GetArtifact returns the stored artifact without generating.
	GetArtifact(ctx context.Context, fid int64) (*domain.Artifact, error)
	// HasArtifact reports whether an artifact exists.
	HasArtifact(ctx context.Context, fid int64) (bool, error)
}

// ProfileService resolves the caller's profile summary.
type ProfileService interface {
	Me(ctx context.Context, fid int64) (*services.Me, error)
}

// MintService mints (or prepares a mint of) the NFT for a FID.
type MintService interface {
	Mint(ctx context.Context, req services.MintRequest) (*services.MintResult, error)
}

// PriceService quotes the current mint price.
type PriceService interface {
	Quote(ctx context.Context) (services.PriceQuote, error)
}

// LeaderboardService serves the leaderboard reads.
type LeaderboardService interface {
	Leaderboard(ctx context.Context, limit int) ([]services.LeaderboardEntry, error)
	RecentActivity(ctx context.Context, limit int) ([]services.Activity, error)
	UserStats(ctx context.Context, fid int64) (*services.Stats, error)
}

// AuthService issues nonces and verifies signed sign-in messages.
type AuthService interface {
	Nonce(ctx context.Context) (string, error)
	Verify(ctx context.Context, req services.VerifyRequest) (*services.SignIn, error)
}

// BotService processes mentions, pushed or polled.
type BotService interface {
	ProcessCast(ctx context.Context, cast farcaster.Cast) (services.Outcome, error)
	PollMentions(ctx context.Context) (services.PollSummary, error)
}

//
// Handler wiring
//

// Services bundles the application services the handlers call. A nil
// service makes its routes answer 503.
type Services struct {
	Artifacts   ArtifactService
	Profiles    ProfileService
	Mint        MintService
	Price       PriceService
	Leaderboard LeaderboardService
	Auth        AuthService
	Bot         BotService
}

// Handlers groups the HTTP endpoints of the API.
type Handlers struct {
	svc     Services
	baseURL string // absolute public URL, no trailing slash
	apiBase string // API mount path, "" for root
}

// New constructs Handlers. baseURL is the public origin used in absolute
// links (metadata, imageUrl); apiBase is the path the API is mounted at.
func New(svc Services, baseURL, apiBase string) *Handlers {
	apiBase = strings.TrimRight(apiBase, "/")
	return &Handlers{
		svc:     svc,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiBase: apiBase,
	}
}

// imageURL is the absolute URL of the image route for fid.
func (h *Handlers) imageURL(fid int64) string {
	return h.baseURL + h.apiBase + "/image/" + strconv.FormatInt(fid, 10)
}

// profileURL is the public profile page for fid.
func (h *Handlers) profileURL(fid int64) string {
	return h.baseURL + "/u/" + strconv.FormatInt(fid, 10)
}

// authorize checks that the signed-in session owns fid. It writes the error
// response and returns false otherwise.
func authorize(c *gin.Context, fid int64) (auth.Session, bool) {
	sess, found := middleware.SessionFrom(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing or invalid bearer token")
		return sess, false
	}
	if sess.FID != fid {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "fid does not match the signed-in user")
		return sess, false
	}
	return sess, true
}

// unavailable answers 503 for routes whose service is not configured.
func unavailable(c *gin.Context, what string) {
	fail(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, what+" is not configured")
}
