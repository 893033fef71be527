// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file stores per-sender rate-limit counters.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/farcasturd-backend/internal/domain"
)

// RateLimitRepo reads and writes turd_rate_limits rows.
type RateLimitRepo struct {
	DB *gorm.DB
}

// NewRateLimitRepo returns a RateLimitRepo bound to db.
func NewRateLimitRepo(db *gorm.DB) *RateLimitRepo {
	return &RateLimitRepo{DB: db}
}

// Get returns the state for fromFID or ErrNotFound.
func (r *RateLimitRepo) Get(ctx context.Context, fromFID int64) (*domain.RateLimitState, error) {
	var st domain.RateLimitState
	err := r.DB.WithContext(ctx).Where("from_fid = ?", fromFID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Save upserts st keyed by FromFID.
func (r *RateLimitRepo) Save(ctx context.Context, st *domain.RateLimitState) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_fid"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_turd_at", "daily_count", "reset_at"}),
		}).
		Create(st).Error
}
