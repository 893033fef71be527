// Package services – LeaderboardService
//
// Read side of the turd game: recipients ranked by received count, the
// newest events, and per-user sent/received totals. Ranking ties are broken
// by the lower FID. Avatars are attached through a bulk profile lookup when
// one is configured; a failed lookup leaves pfpUrl empty.
package services

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/farcasturd-backend/internal/domain"
	"github.com/tbourn/farcasturd-backend/internal/farcaster"
	"github.com/tbourn/farcasturd-backend/internal/repo"
)

// Leaderboard limits.
const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// TurdReader is the query contract over the turds table.
type TurdReader interface {
	TopReceivers(ctx context.Context, limit int) ([]repo.ReceivedCount, error)
	Recent(ctx context.Context, limit int) ([]domain.TurdEvent, error)
	CountReceived(ctx context.Context, fid int64) (int64, error)
	CountSent(ctx context.Context, fid int64) (int64, error)
}

// BulkProfiles resolves many FIDs at once.
type BulkProfiles interface {
	ProfilesByFID(ctx context.Context, fids []int64) (map[int64]farcaster.Profile, error)
}

// LeaderboardEntry is one ranked recipient.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	FID       int64  `json:"fid"`
	Username  string `json:"username"`
	PfpURL    string `json:"pfpUrl,omitempty"`
	TurdCount int64  `json:"turdCount"`
}

// Activity is one recent turd event.
type Activity struct {
	ID           string    `json:"id"`
	FromFID      int64     `json:"fromFid"`
	FromUsername string    `json:"fromUsername"`
	ToFID        int64     `json:"toFid"`
	ToUsername   string    `json:"toUsername"`
	Timestamp    time.Time `json:"timestamp"`
	CastHash     string    `json:"castHash,omitempty"`
}

// Stats are a user's totals.
type Stats struct {
	FID      int64 `json:"fid"`
	Received int64 `json:"received"`
	Sent     int64 `json:"sent"`
}

// LeaderboardService serves leaderboard reads.
type LeaderboardService struct {
	Turds    TurdReader
	Profiles BulkProfiles // optional
}

// ClampLimit applies the default and the [1, MaxLeaderboardLimit] bounds.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

// Leaderboard returns the top recipients, ranked from 1.
func (s *LeaderboardService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	tr := otel.Tracer("services/LeaderboardService")
	ctx, span := tr.Start(ctx, "Leaderboard",
		trace.WithAttributes(attribute.Int("limit", limit)),
	)
	defer span.End()

	rows, err := s.Turds.TopReceivers(ctx, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(rows))
	fids := make([]int64, 0, len(rows))
	for i, r := range rows {
		out = append(out, LeaderboardEntry{
			Rank:      i + 1,
			FID:       r.ToFID,
			Username:  r.ToUsername,
			TurdCount: r.TurdCount,
		})
		fids = append(fids, r.ToFID)
	}
	if s.Profiles != nil && len(fids) > 0 {
		profiles, err := s.Profiles.ProfilesByFID(ctx, fids)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("leaderboard avatar lookup failed")
		} else {
			for i := range out {
				if p, ok := profiles[out[i].FID]; ok {
					out[i].PfpURL = p.PfpURL
				}
			}
		}
	}
	return out, nil
}

// RecentActivity returns the newest events first.
func (s *LeaderboardService) RecentActivity(ctx context.Context, limit int) ([]Activity, error) {
	events, err := s.Turds.Recent(ctx, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]Activity, 0, len(events))
	for _, e := range events {
		out = append(out, Activity{
			ID:           strconv.FormatUint(uint64(e.ID), 10),
			FromFID:      e.FromFID,
			FromUsername: e.FromUsername,
			ToFID:        e.ToFID,
			ToUsername:   e.ToUsername,
			Timestamp:    e.CreatedAt.UTC(),
			CastHash:     e.CastHash,
		})
	}
	return out, nil
}

// UserStats returns fid's received and sent totals.
func (s *LeaderboardService) UserStats(ctx context.Context, fid int64) (*Stats, error) {
	if fid <= 0 {
		return nil, ErrInvalidFID
	}
	received, err := s.Turds.CountReceived(ctx, fid)
	if err != nil {
		return nil, err
	}
	sent, err := s.Turds.CountSent(ctx, fid)
	if err != nil {
		return nil, err
	}
	return &Stats{FID: fid, Received: received, Sent: sent}, nil
}
