package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/farcasturd-backend/internal/services"
	"github.com/tbourn/farcasturd-backend/internal/utils"
)

const cacheLeaderboard = "public, s-maxage=60, stale-while-revalidate=30"

// LeaderboardResponse is the leaderboard page payload.
type LeaderboardResponse struct {
	Leaderboard    []services.LeaderboardEntry `json:"leaderboard"`
	RecentActivity []services.Activity         `json:"recentActivity"`
	UserStats      *services.Stats             `json:"userStats,omitempty"`
}

// Leaderboard godoc
// @ID          getLeaderboard
// @Summary     Turd leaderboard
// @Description Top recipients by turds received, the latest turd events and, when fid is given, that user's totals. Ties rank by lower FID.
// @Tags        Leaderboard
// @Produce     json
//
// @Param       fid    query  int  false  "Include stats for this Farcaster ID"
// @Param       limit  query  int  false  "Rows per list (1-100, default 10)"
//
// @Success     200  {object}  handlers.LeaderboardResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid fid"
// @Failure     500  {object}  handlers.ErrorResponse  "Store failure"
// @Router      /leaderboard [get]
func (h *Handlers) Leaderboard(c *gin.Context) {
	if h.svc.Leaderboard == nil {
		unavailable(c, "leaderboard")
		return
	}
	var fid int64
	if raw := c.Query("fid"); raw != "" {
		parsed, valid := utils.ParseFID(raw)
		if !valid {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "fid must be a positive integer")
			return
		}
		fid = parsed
	}
	limit := services.ClampLimit(utils.AtoiDefault(c.Query("limit"), services.DefaultLeaderboardLimit))
	ctx := c.Request.Context()

	board, err := h.svc.Leaderboard.Leaderboard(ctx, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to fetch leaderboard data")
		return
	}
	recent, err := h.svc.Leaderboard.RecentActivity(ctx, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to fetch leaderboard data")
		return
	}
	resp := LeaderboardResponse{Leaderboard: board, RecentActivity: recent}
	if fid > 0 {
		stats, err := h.svc.Leaderboard.UserStats(ctx, fid)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to fetch leaderboard data")
			return
		}
		resp.UserStats = stats
	}

	okCached(c, cacheLeaderboard, resp)
}
