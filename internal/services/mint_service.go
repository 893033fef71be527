// Package services – MintService
//
// MintService mints the Farcasturd NFT for a FID. Two modes are supported:
//
//   - server: the backend signs mintFor(to, fid) with its minter key and
//     returns the transaction hash.
//   - wallet: the backend returns the encoded call {to, data, value} and the
//     user's wallet submits it.
//
// In server mode a mint claim row is taken before the transaction is sent.
// The claim's unique FID key lets exactly one concurrent request reach the
// chain while hasMinted still reads false; the loser gets ErrAlreadyMinted.
// A claim whose send failed is released so the user can retry; a claim whose
// transaction never lands expires after the configured TTL.
package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/farcasturd-backend/internal/chain"
	"github.com/tbourn/farcasturd-backend/internal/domain"
	"github.com/tbourn/farcasturd-backend/internal/repo"
)

// Mint modes.
const (
	MintModeServer = "server"
	MintModeWallet = "wallet"
)

// DefaultClaimTTL bounds how long a pending claim blocks another mint.
const DefaultClaimTTL = 10 * time.Minute

// MintChain is the contract surface minting needs.
type MintChain interface {
	HasMinted(ctx context.Context, fid int64) (bool, error)
	MintFor(ctx context.Context, to string, fid int64, value *big.Int) (string, error)
	PrepareMint(to string, fid int64, value *big.Int) (chain.TxRequest, error)
}

var _ MintChain = (*chain.Client)(nil)

// MintClaims is the persistence contract for in-flight mints.
type MintClaims interface {
	Claim(ctx context.Context, fid int64, to string, ttl time.Duration, now time.Time) (*domain.MintClaim, error)
	SetTxHash(ctx context.Context, fid int64, txHash string) error
	Release(ctx context.Context, fid int64) error
}

// WeiPricer returns the current mint price in wei.
type WeiPricer interface {
	PriceWei(ctx context.Context) (*big.Int, error)
}

// MintRequest is the input to Mint. Caller is the signed-in wallet; when set
// the recipient must equal it.
type MintRequest struct {
	FID    int64
	To     string
	Caller string
}

// MintResult is the outcome of a successful Mint.
type MintResult struct {
	FID    int64            `json:"fid"`
	To     string           `json:"to"`
	TxHash string           `json:"txHash,omitempty"`
	Tx     *chain.TxRequest `json:"tx,omitempty"`
	OK     bool             `json:"ok"`
}

// MintService orchestrates minting.
type MintService struct {
	Chain  MintChain // nil means minting is not configured
	Claims MintClaims
	Price  WeiPricer // nil means free

	Mode     string        // server|wallet, default server
	ClaimTTL time.Duration // 0 means DefaultClaimTTL

	Now func() time.Time
}

func (s *MintService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Mint validates the request and mints (server mode) or prepares the call
// (wallet mode).
func (s *MintService) Mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	tr := otel.Tracer("services/MintService")
	ctx, span := tr.Start(ctx, "Mint",
		trace.WithAttributes(attribute.Int64("fid", req.FID), attribute.String("mode", s.mode())),
	)
	defer span.End()

	res, err := s.mint(ctx, req)
	if err != nil {
		mints.WithLabelValues(mintOutcome(err)).Inc()
		span.RecordError(err)
		return nil, err
	}
	if res.TxHash != "" {
		span.SetAttributes(attribute.String("tx", res.TxHash))
	}
	mints.WithLabelValues("ok").Inc()
	return res, nil
}

func (s *MintService) mode() string {
	if s.Mode == MintModeWallet {
		return MintModeWallet
	}
	return MintModeServer
}

func (s *MintService) mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	if req.FID <= 0 {
		return nil, ErrInvalidFID
	}
	to := strings.TrimSpace(req.To)
	if !common.IsHexAddress(to) {
		return nil, ErrInvalidAddress
	}
	to = strings.ToLower(to)
	if req.Caller != "" && !strings.EqualFold(req.Caller, to) {
		return nil, ErrRecipientMismatch
	}
	if s.Chain == nil {
		return nil, ErrMintNotConfigured
	}

	minted, err := s.Chain.HasMinted(ctx, req.FID)
	if err != nil {
		return nil, chainErr(err)
	}
	if minted {
		return nil, ErrAlreadyMinted
	}

	value, err := s.priceWei(ctx)
	if err != nil {
		return nil, err
	}

	if s.mode() == MintModeWallet {
		tx, err := s.Chain.PrepareMint(to, req.FID, value)
		if err != nil {
			return nil, chainErr(err)
		}
		return &MintResult{FID: req.FID, To: to, Tx: &tx, OK: true}, nil
	}

	ttl := s.ClaimTTL
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	if _, err := s.Claims.Claim(ctx, req.FID, to, ttl, s.now()); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrAlreadyMinted
		}
		return nil, fmt.Errorf("claim mint: %w", err)
	}

	log := zerolog.Ctx(ctx).With().Int64("fid", req.FID).Str("to", to).Logger()
	txHash, err := s.Chain.MintFor(ctx, to, req.FID, value)
	if err != nil {
		if rerr := s.Claims.Release(ctx, req.FID); rerr != nil {
			log.Error().Err(rerr).Msg("release mint claim")
		}
		return nil, chainErr(err)
	}
	if err := s.Claims.SetTxHash(ctx, req.FID, txHash); err != nil {
		log.Warn().Err(err).Str("tx", txHash).Msg("record mint tx hash")
	}
	log.Info().Str("tx", txHash).Msg("mint submitted")
	return &MintResult{FID: req.FID, To: to, TxHash: txHash, OK: true}, nil
}

func (s *MintService) priceWei(ctx context.Context) (*big.Int, error) {
	if s.Price == nil {
		return new(big.Int), nil
	}
	wei, err := s.Price.PriceWei(ctx)
	if err != nil {
		return nil, chainErr(err)
	}
	return wei, nil
}

// HasMinted reports the on-chain mint flag for fid.
func (s *MintService) HasMinted(ctx context.Context, fid int64) (bool, error) {
	if fid <= 0 {
		return false, ErrInvalidFID
	}
	if s.Chain == nil {
		return false, ErrMintNotConfigured
	}
	ok, err := s.Chain.HasMinted(ctx, fid)
	if err != nil {
		return false, chainErr(err)
	}
	return ok, nil
}

// chainErr lifts chain sentinels onto the service vocabulary while keeping
// the original in the chain.
func chainErr(err error) error {
	switch {
	case errors.Is(err, chain.ErrAlreadyMinted):
		return fmt.Errorf("%w: %w", ErrAlreadyMinted, err)
	case errors.Is(err, chain.ErrNotConfigured):
		return fmt.Errorf("%w: %w", ErrMintNotConfigured, err)
	case errors.Is(err, chain.ErrInvalidFID):
		return fmt.Errorf("%w: %w", ErrInvalidFID, err)
	case errors.Is(err, chain.ErrInvalidAddress):
		return fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return err
}

func mintOutcome(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyMinted):
		return "already_minted"
	case errors.Is(err, ErrInvalidFID), errors.Is(err, ErrInvalidAddress), errors.Is(err, ErrRecipientMismatch):
		return "invalid"
	case errors.Is(err, chain.ErrInsufficientPayment):
		return "insufficient_payment"
	case errors.Is(err, ErrMintNotConfigured):
		return "not_configured"
	}
	return "failed"
}
