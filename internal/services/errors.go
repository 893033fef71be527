// Package services holds the business logic of the Farcasturd backend:
// artifact generation, minting, the turd bot, rate limiting, the leaderboard,
// sign-in and pricing. This file centralizes the service-level error values
// so that handlers can map them onto HTTP results consistently.
//
// Errors from collaborators (chain, imagegen, farcaster) are wrapped, not
// replaced, so callers can still match the underlying sentinel or class with
// errors.Is / errors.As.
package services

import (
	"errors"

	"github.com/tbourn/farcasturd-backend/internal/domain"
)

// Input errors.
var (
	// ErrInvalidFID is returned for a missing, zero or negative FID.
	ErrInvalidFID = errors.New("fid must be a positive integer")

	// ErrInvalidAddress is returned when a recipient is not a hex address.
	ErrInvalidAddress = errors.New("invalid recipient address")
)

// Generation errors.
var (
	// ErrProfileLookup wraps any failure to fetch the social profile.
	ErrProfileLookup = errors.New("profile lookup failed")

	// ErrArtifactNotFound is returned when no artifact has been generated.
	ErrArtifactNotFound = domain.ErrArtifactNotFound
)

// Mint errors.
var (
	// ErrAlreadyMinted covers both an on-chain mint and a pending claim.
	ErrAlreadyMinted = errors.New("farcasturd already minted for this fid")

	// ErrMintNotConfigured is returned when no chain client is available.
	ErrMintNotConfigured = errors.New("minting is not configured")

	// ErrRecipientMismatch is returned when the mint recipient is not the
	// signed-in wallet.
	ErrRecipientMismatch = errors.New("recipient must be the signed-in address")
)

// Sign-in errors.
var (
	// ErrNonceUsed is returned when a sign-in nonce was already used, has
	// expired or was never issued.
	ErrNonceUsed = errors.New("nonce already used or expired")

	// ErrNonceMismatch is returned when the message nonce differs from the
	// submitted nonce.
	ErrNonceMismatch = errors.New("nonce does not match message")

	// ErrAddressNotOwned is returned when the signer is not a custody or
	// verified address of the FID.
	ErrAddressNotOwned = errors.New("address is not linked to this fid")
)

// Bot errors.
var (
	// ErrRateLimited is returned by Consume when the sender has no
	// allowance left.
	ErrRateLimited = errors.New("sender is rate limited")
)
