// Package auth proves FID ownership with a wallet signature and issues the
// session tokens that gate generation and minting.
//
// The client asks for a nonce, then signs an EIP-4361 (sign-in-with-Ethereum)
// message carrying that nonce and a "farcaster://fid/<n>" resource. The
// server checks the domain and the Issued At window, verifies the EIP-191
// signature, checks the signer against the FID's custody and verified
// addresses, consumes the nonce and returns an HS256 JWT.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spruceid/siwe-go"
)

var (
	ErrMalformedMessage = errors.New("auth: malformed sign-in message")
	ErrMissingFID       = errors.New("auth: FID not found in message")
	ErrBadSignature     = errors.New("auth: invalid signature")
	ErrExpired          = errors.New("auth: message expired or not yet valid")
	ErrDomainMismatch   = errors.New("auth: message was issued for another domain")
)

// fidScheme is the resource scheme Sign In With Farcaster uses for the FID,
// e.g. "farcaster://fid/198116".
const fidScheme = "farcaster"

// Message is a parsed sign-in message and the FID it claims.
type Message struct {
	Domain   string
	Address  common.Address
	Nonce    string
	IssuedAt time.Time
	FID      int64

	sm *siwe.Message
}

// ParseMessage parses the EIP-4361 text form.
func ParseMessage(raw string) (*Message, error) {
	sm, err := siwe.ParseMessage(strings.ReplaceAll(raw, "\r\n", "\n"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	issued, err := time.Parse(time.RFC3339Nano, sm.GetIssuedAt())
	if err != nil {
		return nil, fmt.Errorf("%w: issued at", ErrMalformedMessage)
	}
	fid, err := fidResource(sm)
	if err != nil {
		return nil, err
	}
	return &Message{
		Domain:   sm.GetDomain(),
		Address:  sm.GetAddress(),
		Nonce:    sm.GetNonce(),
		IssuedAt: issued.UTC(),
		FID:      fid,
		sm:       sm,
	}, nil
}

func fidResource(sm *siwe.Message) (int64, error) {
	for _, r := range sm.GetResources() {
		if r.Scheme != fidScheme || r.Host != "fid" {
			continue
		}
		fid, err := strconv.ParseInt(strings.Trim(r.Path, "/"), 10, 64)
		if err != nil || fid <= 0 {
			return 0, ErrMissingFID
		}
		return fid, nil
	}
	return 0, ErrMissingFID
}

// Policy bounds which messages are accepted.
type Policy struct {
	// Domain must equal the message domain when set.
	Domain string
	// MaxAge is how long after Issued At a message is accepted.
	MaxAge time.Duration
	// Skew tolerates client clocks running ahead.
	Skew time.Duration
}

// Check applies the policy and the message's own Expiration Time and Not
// Before at now.
func (m *Message) Check(now time.Time, p Policy) error {
	if p.Domain != "" && !strings.EqualFold(m.Domain, p.Domain) {
		return fmt.Errorf("%w: %q", ErrDomainMismatch, m.Domain)
	}
	if m.IssuedAt.After(now.Add(p.Skew)) {
		return fmt.Errorf("%w: issued in the future", ErrExpired)
	}
	if p.MaxAge > 0 && now.Sub(m.IssuedAt) > p.MaxAge {
		return fmt.Errorf("%w: issued %s ago", ErrExpired, now.Sub(m.IssuedAt).Truncate(time.Second))
	}
	if ok, err := m.sm.ValidAt(now); err != nil || !ok {
		return fmt.Errorf("%w: %v", ErrExpired, err)
	}
	return nil
}

// VerifySignature checks an EIP-191 personal_sign signature over the message
// and returns the signer, which always equals m.Address.
func (m *Message) VerifySignature(signature string) (common.Address, error) {
	pub, err := m.sm.VerifyEIP191(strings.TrimSpace(signature))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// NewNonce returns 16 random bytes, hex encoded. The result satisfies the
// EIP-4361 nonce grammar (alphanumeric, at least 8 characters).
func NewNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
