package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Me is the mini app's view of the current user.
type Me struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	Wallet      string `json:"wallet"`
	PfpURL      string `json:"pfpUrl,omitempty"`
	HasMinted   bool   `json:"hasMinted"`
}

// ProfileService assembles the /me payload.
type ProfileService struct {
	Profiles ProfileSource
	Minted   MintChecker // optional
}

// Me looks up fid's profile and mint flag. A failed mint check reads as
// not minted.
func (s *ProfileService) Me(ctx context.Context, fid int64) (*Me, error) {
	if fid <= 0 {
		return nil, ErrInvalidFID
	}
	p, err := s.Profiles.Profile(ctx, fid)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileLookup, err)
	}
	me := &Me{
		FID:         p.FID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Wallet:      p.PrimaryWallet(),
		PfpURL:      p.PfpURL,
	}
	if s.Minted != nil {
		ok, err := s.Minted.HasMinted(ctx, fid)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int64("fid", fid).Msg("hasMinted lookup failed")
		}
		me.HasMinted = ok && err == nil
	}
	return me, nil
}
