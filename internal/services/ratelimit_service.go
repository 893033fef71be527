// Package services – RateLimitService
//
// Per-sender limits for the turd bot: a 60 second cooldown between permitted
// events and a cap of 10 per rolling 24 hour window that starts at the
// sender's first event. The state is read, decided and written back without
// a transaction; two simultaneous casts from one sender may both pass.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tbourn/farcasturd-backend/internal/domain"
	"github.com/tbourn/farcasturd-backend/internal/repo"
)

// Rate limiter defaults.
const (
	DefaultDailyLimit = 10
	DefaultCooldown   = 60 * time.Second
	DefaultWindow     = 24 * time.Hour

	// resetLayout carries the date and zone; the window can end tomorrow.
	resetLayout = "2006-01-02 15:04 MST"
)

// RateLimitRepo is the persistence contract for per-sender counters.
type RateLimitRepo interface {
	Get(ctx context.Context, fromFID int64) (*domain.RateLimitState, error)
	Save(ctx context.Context, st *domain.RateLimitState) error
}

// Decision is the outcome of Check or CheckAndConsume.
type Decision struct {
	Allowed    bool
	Reason     string
	RetryAfter time.Duration
}

// RateLimitService enforces the bot's per-sender limits.
type RateLimitService struct {
	Repo RateLimitRepo

	DailyLimit int           // 0 means DefaultDailyLimit
	Cooldown   time.Duration // 0 means DefaultCooldown
	Window     time.Duration // 0 means DefaultWindow

	Now func() time.Time
}

func (s *RateLimitService) clock() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *RateLimitService) limits() (int, time.Duration, time.Duration) {
	limit, cooldown, window := s.DailyLimit, s.Cooldown, s.Window
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return limit, cooldown, window
}

// Check decides whether senderFID may send now without recording anything.
func (s *RateLimitService) Check(ctx context.Context, senderFID int64) (Decision, error) {
	dec, _, err := s.decide(ctx, senderFID)
	return dec, err
}

// Consume records one permitted event for senderFID.
func (s *RateLimitService) Consume(ctx context.Context, senderFID int64) error {
	dec, next, err := s.decide(ctx, senderFID)
	if err != nil {
		return err
	}
	if !dec.Allowed {
		return fmt.Errorf("%w: %s", ErrRateLimited, dec.Reason)
	}
	return s.Repo.Save(ctx, next)
}

// CheckAndConsume decides whether senderFID may send now and, if so,
// records the event.
func (s *RateLimitService) CheckAndConsume(ctx context.Context, senderFID int64) (Decision, error) {
	dec, next, err := s.decide(ctx, senderFID)
	if err != nil || !dec.Allowed {
		return dec, err
	}
	if err := s.Repo.Save(ctx, next); err != nil {
		return Decision{}, err
	}
	return dec, nil
}

// decide returns the decision at the current time and, when allowed, the
// state to save if the event goes ahead.
func (s *RateLimitService) decide(ctx context.Context, senderFID int64) (Decision, *domain.RateLimitState, error) {
	if senderFID <= 0 {
		return Decision{}, nil, ErrInvalidFID
	}
	limit, cooldown, window := s.limits()
	now := s.clock()

	st, err := s.Repo.Get(ctx, senderFID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return Decision{}, nil, err
	}

	if st == nil || !now.Before(st.ResetAt) {
		return Decision{Allowed: true}, &domain.RateLimitState{
			FromFID:    senderFID,
			LastTurdAt: now,
			DailyCount: 1,
			ResetAt:    now.Add(window),
		}, nil
	}

	if since := now.Sub(st.LastTurdAt); since < cooldown {
		wait := cooldown - since
		secs := int(math.Ceil(wait.Seconds()))
		return Decision{
			Reason:     fmt.Sprintf("Cooldown active. Please wait %d seconds.", secs),
			RetryAfter: wait,
		}, nil, nil
	}

	if st.DailyCount >= limit {
		return Decision{
			Reason:     fmt.Sprintf("Daily limit reached (%d turds/day). Resets %s.", limit, st.ResetAt.UTC().Format(resetLayout)),
			RetryAfter: st.ResetAt.Sub(now),
		}, nil, nil
	}

	next := *st
	next.DailyCount++
	next.LastTurdAt = now
	return Decision{Allowed: true}, &next, nil
}
