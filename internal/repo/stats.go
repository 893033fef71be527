// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate queries behind the
// leaderboard: received counts grouped by recipient.
package repo

import (
	"context"

	"github.com/tbourn/farcasturd-backend/internal/domain"
)

// ReceivedCount is one aggregated leaderboard row.
type ReceivedCount struct {
	ToFID      int64  `gorm:"column:to_fid"`
	ToUsername string `gorm:"column:to_username"`
	TurdCount  int64  `gorm:"column:turd_count"`
}

// TopReceivers returns recipients ranked by received count descending.
// Ties are broken by the lower FID first so the order is stable across
// SQLite and Postgres. The username shown is the greatest one recorded for
// the FID, which collapses rows written before a username change.
func (r *TurdRepo) TopReceivers(ctx context.Context, limit int) ([]ReceivedCount, error) {
	var rows []ReceivedCount
	err := r.DB.WithContext(ctx).
		Model(&domain.TurdEvent{}).
		Select("to_fid, MAX(to_username) AS to_username, COUNT(*) AS turd_count").
		Group("to_fid").
		Order("turd_count DESC").
		Order("to_fid ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
