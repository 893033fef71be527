// Package services – AuthService
//
// Sign-in proves control of a FID: the server hands out a nonce, the client
// signs a sign-in-with-Ethereum message for this domain that carries the
// nonce and the FID, and the server verifies the signature, checks that the
// signer is one of the FID's custody or verified addresses, consumes the
// nonce and issues a session token. A nonce signs in at most once, and only
// within its TTL.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/tbourn/farcasturd-backend/internal/auth"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(fid int64, address string) (string, auth.Session, error)
}

// VerifyRequest is the sign-in payload.
type VerifyRequest struct {
	Message   string
	Signature string
	Nonce     string
}

// SignIn is the result of a successful Verify.
type SignIn struct {
	Token   string       `json:"token"`
	Session auth.Session `json:"session"`
}

// clockSkew is how far ahead of the server a client's Issued At may be.
const clockSkew = time.Minute

// AuthService issues nonces and verifies sign-in signatures.
type AuthService struct {
	Nonces   auth.NonceStore
	Tokens   TokenIssuer
	Profiles ProfileSource

	// Domain is the host (and port) messages must be issued for. Empty
	// accepts any domain.
	Domain string

	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Nonce issues a fresh random nonce for the client to embed in its message.
func (s *AuthService) Nonce(ctx context.Context) (string, error) {
	n, err := auth.NewNonce()
	if err != nil {
		return "", err
	}
	if err := s.Nonces.Issue(ctx, n); err != nil {
		return "", fmt.Errorf("issue nonce: %w", err)
	}
	return n, nil
}

// Verify checks a signed sign-in message and returns a session token.
func (s *AuthService) Verify(ctx context.Context, req VerifyRequest) (*SignIn, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Verify")
	defer span.End()

	msg, err := auth.ParseMessage(req.Message)
	if err != nil {
		return nil, err
	}
	if req.Nonce == "" || msg.Nonce != req.Nonce {
		return nil, ErrNonceMismatch
	}
	policy := auth.Policy{Domain: s.Domain, MaxAge: s.Nonces.TTL(), Skew: clockSkew}
	if err := msg.Check(s.now(), policy); err != nil {
		return nil, err
	}

	signer, err := msg.VerifySignature(req.Signature)
	if err != nil {
		return nil, err
	}

	profile, err := s.Profiles.Profile(ctx, msg.FID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileLookup, err)
	}
	addr := strings.ToLower(signer.Hex())
	if !profile.OwnsAddress(addr) {
		return nil, ErrAddressNotOwned
	}

	fresh, err := s.Nonces.Consume(ctx, req.Nonce)
	if err != nil {
		return nil, fmt.Errorf("consume nonce: %w", err)
	}
	if !fresh {
		return nil, ErrNonceUsed
	}

	tok, sess, err := s.Tokens.Issue(msg.FID, addr)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Int64("fid", msg.FID).Msg("signed in")
	return &SignIn{Token: tok, Session: sess}, nil
}

// IsAuthInputError reports whether err came from a bad sign-in payload
// rather than an upstream failure.
func IsAuthInputError(err error) bool {
	return errors.Is(err, auth.ErrMalformedMessage) ||
		errors.Is(err, auth.ErrMissingFID) ||
		errors.Is(err, auth.ErrBadSignature) ||
		errors.Is(err, auth.ErrExpired) ||
		errors.Is(err, auth.ErrDomainMismatch) ||
		errors.Is(err, ErrNonceMismatch) ||
		errors.Is(err, ErrNonceUsed)
}
