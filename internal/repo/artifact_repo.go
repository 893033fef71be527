// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the relational artifact store: one row
// per FID holding the generated image bytes and the prompt that produced them.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/farcasturd-backend/internal/domain"
)

// ArtifactStore persists generated artifacts in the artifacts table.
// It is safe for concurrent use.
type ArtifactStore struct {
	DB *gorm.DB
}

// NewArtifactStore returns an ArtifactStore bound to db.
func NewArtifactStore(db *gorm.DB) *ArtifactStore {
	return &ArtifactStore{DB: db}
}

// Get returns the artifact for fid or domain.ErrArtifactNotFound.
func (s *ArtifactStore) Get(ctx context.Context, fid int64) (*domain.Artifact, error) {
	var a domain.Artifact
	err := s.DB.WithContext(ctx).Where("fid = ?", fid).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrArtifactNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Exists reports whether an artifact row exists for fid.
func (s *ArtifactStore) Exists(ctx context.Context, fid int64) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).
		Model(&domain.Artifact{}).
		Where("fid = ?", fid).
		Count(&n).Error
	return n > 0, err
}

// Put inserts or replaces the artifact keyed by its FID. A concurrent second
// writer silently wins; it never fails on the primary key.
func (s *ArtifactStore) Put(ctx context.Context, a *domain.Artifact) error {
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fid"}},
			DoUpdates: clause.AssignmentColumns([]string{"image", "mime_type", "prompt", "created_at"}),
		}).
		Create(a).Error
}
