// Package domain defines the persistence models for generated artifacts, the
// turd game event log, and per-sender rate-limit state. These types are mapped
// with GORM and shared across the repository and service layers.
package domain

import (
	"errors"
	"time"
)

// ErrArtifactNotFound is returned by artifact stores when no artifact exists
// for the requested FID. Both the relational and blob backends use it.
var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is the generated image for one FID. The FID is the natural primary
// key: a row is created by the first successful generation and only replaced
// by an explicit overwrite.
//
// Fields:
//   - FID: Farcaster ID (positive), primary key.
//   - Image: raw encoded image bytes.
//   - MimeType: content type of Image (e.g. "image/png").
//   - Prompt: the exact prompt string sent to the image model.
//   - CreatedAt: generation timestamp (UTC).
type Artifact struct {
	FID       int64     `json:"fid"        gorm:"column:fid;primaryKey;autoIncrement:false"`
	Image     []byte    `json:"-"          gorm:"not null"`
	MimeType  string    `json:"mime_type"  gorm:"type:varchar(64);not null;default:'image/png'"`
	Prompt    string    `json:"prompt"     gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

// TableName returns the database table name for Artifact.
func (Artifact) TableName() string { return "artifacts" }

// TurdEvent records one "sent a turd" command recognized by the bot.
// CastHash is the natural key that keeps a mention from being processed twice.
// Rows are append-only.
type TurdEvent struct {
	ID           uint      `json:"id"            gorm:"primaryKey"`
	FromFID      int64     `json:"from_fid"      gorm:"column:from_fid;not null;index:idx_turds_from"`
	FromUsername string    `json:"from_username" gorm:"type:varchar(64);not null"`
	ToFID        int64     `json:"to_fid"        gorm:"column:to_fid;not null;index:idx_turds_to"`
	ToUsername   string    `json:"to_username"   gorm:"type:varchar(64);not null"`
	CastHash     string    `json:"cast_hash"     gorm:"type:varchar(80);not null;uniqueIndex:ux_turds_cast_hash"`
	CreatedAt    time.Time `json:"created_at"    gorm:"not null;index:idx_turds_created"`
}

// TableName returns the database table name for TurdEvent.
func (TurdEvent) TableName() string { return "turds" }

// RateLimitState is the per-sender counter used by the bot rate limiter.
//
// Fields:
//   - FromFID: sender FID, primary key.
//   - LastTurdAt: time of the last permitted event (cooldown anchor).
//   - DailyCount: permitted events in the current window.
//   - ResetAt: when DailyCount resets.
type RateLimitState struct {
	FromFID    int64     `json:"from_fid"     gorm:"column:from_fid;primaryKey;autoIncrement:false"`
	LastTurdAt time.Time `json:"last_turd_at" gorm:"not null"`
	DailyCount int       `json:"daily_count"  gorm:"not null;default:0"`
	ResetAt    time.Time `json:"reset_at"     gorm:"not null"`
}

// TableName returns the database table name for RateLimitState.
func (RateLimitState) TableName() string { return "turd_rate_limits" }
