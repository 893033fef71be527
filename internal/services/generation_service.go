// Package services – GenerationService
//
// This file implements the generation orchestrator. EnsureArtifact returns
// the stored Farcasturd for a FID, or builds one: profile lookup, palette
// extraction from the avatar, prompt construction, image generation (with
// the image client's retry policy) and an insert-or-replace into the store.
//
// No lock is held across the pipeline. Two concurrent misses for the same
// FID may both generate; the last Put wins and both callers get an image.
//
// Observability: each step runs in its own OpenTelemetry span and outcomes
// are counted in farcasturd_generations_total.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/farcasturd-backend/internal/domain"
	"github.com/tbourn/farcasturd-backend/internal/farcaster"
	"github.com/tbourn/farcasturd-backend/internal/palette"
	"github.com/tbourn/farcasturd-backend/internal/prompt"
)

// ArtifactStore persists generated artifacts. Both the relational store and
// the S3 store satisfy it.
type ArtifactStore interface {
	Get(ctx context.Context, fid int64) (*domain.Artifact, error)
	Exists(ctx context.Context, fid int64) (bool, error)
	Put(ctx context.Context, a *domain.Artifact) error
}

// ProfileSource fetches a single profile.
type ProfileSource interface {
	Profile(ctx context.Context, fid int64) (*farcaster.Profile, error)
}

// PaletteSource extracts colors from an avatar URL.
type PaletteSource interface {
	FromURL(ctx context.Context, url string) (palette.Palette, error)
}

// ImageGenerator renders a prompt into image bytes.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// GenerationService orchestrates artifact creation.
type GenerationService struct {
	Store    ArtifactStore
	Profiles ProfileSource
	Palettes PaletteSource // optional; nil means palette.Default
	Images   ImageGenerator

	// PlaceholderProfile substitutes {FID, "fid-<n>"} when the profile
	// lookup fails instead of failing the request.
	PlaceholderProfile bool

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (s *GenerationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// GetArtifact returns the stored artifact without generating one.
func (s *GenerationService) GetArtifact(ctx context.Context, fid int64) (*domain.Artifact, error) {
	if fid <= 0 {
		return nil, ErrInvalidFID
	}
	a, err := s.Store.Get(ctx, fid)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// HasArtifact reports whether an artifact exists for fid.
func (s *GenerationService) HasArtifact(ctx context.Context, fid int64) (bool, error) {
	if fid <= 0 {
		return false, ErrInvalidFID
	}
	return s.Store.Exists(ctx, fid)
}

// EnsureArtifact returns the existing artifact for fid or generates and
// stores a new one.
func (s *GenerationService) EnsureArtifact(ctx context.Context, fid int64) (*domain.Artifact, error) {
	tr := otel.Tracer("services/GenerationService")
	ctx, span := tr.Start(ctx, "EnsureArtifact",
		trace.WithAttributes(attribute.Int64("fid", fid)),
	)
	defer span.End()

	if fid <= 0 {
		return nil, ErrInvalidFID
	}
	log := zerolog.Ctx(ctx).With().Int64("fid", fid).Logger()

	existing, err := s.Store.Get(ctx, fid)
	if err == nil {
		generations.WithLabelValues("cache_hit").Inc()
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return existing, nil
	}
	if !errors.Is(err, domain.ErrArtifactNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store get")
		return nil, err
	}

	a, err := s.generate(ctx, &log, fid)
	if err != nil {
		generations.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate")
		return nil, err
	}
	generations.WithLabelValues("generated").Inc()
	log.Info().Int("bytes", len(a.Image)).Msg("farcasturd generated")
	return a, nil
}

func (s *GenerationService) generate(ctx context.Context, log *zerolog.Logger, fid int64) (*domain.Artifact, error) {
	tr := otel.Tracer("services/GenerationService")

	pctx, span := tr.Start(ctx, "profile")
	profile, err := s.Profiles.Profile(pctx, fid)
	span.End()
	if err != nil {
		if !s.PlaceholderProfile {
			return nil, fmt.Errorf("%w: %w", ErrProfileLookup, err)
		}
		log.Warn().Err(err).Msg("profile lookup failed, using placeholder profile")
		profile = &farcaster.Profile{FID: fid, Username: "fid-" + strconv.FormatInt(fid, 10)}
	}

	pal := palette.Default
	if s.Palettes != nil && profile.PfpURL != "" {
		cctx, span := tr.Start(ctx, "palette")
		p, err := s.Palettes.FromURL(cctx, profile.PfpURL)
		span.End()
		if err != nil {
			log.Debug().Err(err).Msg("palette extraction failed, using default")
		} else {
			pal = p
		}
	}

	text := prompt.Build(fid, *profile, &pal)

	gctx, span := tr.Start(ctx, "image")
	img, err := s.Images.Generate(gctx, text)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
	if err != nil {
		return nil, err
	}

	a := &domain.Artifact{
		FID:       fid,
		Image:     img,
		MimeType:  "image/png",
		Prompt:    text,
		CreatedAt: s.now(),
	}
	sctx, span := tr.Start(ctx, "store")
	err = s.Store.Put(sctx, a)
	span.End()
	if err != nil {
		return nil, err
	}
	return a, nil
}
