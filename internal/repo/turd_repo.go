// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the append-only turd event log written
// by the mention bot.
//
// Error semantics:
//   - Recording an event whose cast hash already exists returns ErrDuplicate.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/farcasturd-backend/internal/domain"
)

// TurdRepo reads and appends turd events.
type TurdRepo struct {
	DB *gorm.DB
}

// NewTurdRepo returns a TurdRepo bound to db.
func NewTurdRepo(db *gorm.DB) *TurdRepo {
	return &TurdRepo{DB: db}
}

// Record appends ev. CreatedAt defaults to now (UTC) when zero.
func (r *TurdRepo) Record(ctx context.Context, ev *domain.TurdEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if err := r.DB.WithContext(ctx).Create(ev).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Processed reports whether a mention with castHash was already recorded.
func (r *TurdRepo) Processed(ctx context.Context, castHash string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&domain.TurdEvent{}).
		Where("cast_hash = ?", castHash).
		Count(&n).Error
	return n > 0, err
}

// CountReceived returns how many turds fid has received.
func (r *TurdRepo) CountReceived(ctx context.Context, fid int64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&domain.TurdEvent{}).
		Where("to_fid = ?", fid).
		Count(&n).Error
	return n, err
}

// CountSent returns how many turds fid has sent.
func (r *TurdRepo) CountSent(ctx context.Context, fid int64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&domain.TurdEvent{}).
		Where("from_fid = ?", fid).
		Count(&n).Error
	return n, err
}

// Recent returns the newest limit events, most recent first.
func (r *TurdRepo) Recent(ctx context.Context, limit int) ([]domain.TurdEvent, error) {
	var out []domain.TurdEvent
	err := r.DB.WithContext(ctx).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
