package services

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tbourn/farcasturd-backend/internal/auth"
	"github.com/tbourn/farcasturd-backend/internal/farcaster"
	"github.com/tbourn/farcasturd-backend/internal/repo"
)

var signInIssuedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func signInMessage(addr string, fid int64, nonce string) string {
	return fmt.Sprintf(`farcasturd.xyz wants you to sign in with your Ethereum account:
%s

Sign in to Farcasturd

URI: https://farcasturd.xyz
Version: 1
Chain ID: 10
Nonce: %s
Issued At: 2025-01-01T00:00:00Z
Resources:
- farcaster://fid/%d`, addr, nonce, fid)
}

func personalSign(t *testing.T, key *ecdsa.PrivateKey, msg string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

type authFixture struct {
	svc  *AuthService
	key  *ecdsa.PrivateKey
	addr string
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	profiles := newFakeProfiles(farcaster.Profile{
		FID:      198116,
		Username: "alice",
		Custody:  "0x00000000000000000000000000000000000000c0",
		Verified: []string{strings.ToLower(addr)},
	})
	return &authFixture{
		svc: &AuthService{
			Nonces:   auth.NewDBNonces(repo.NewNonceRepo(newTestDB(t)), 10*time.Minute),
			Tokens:   auth.NewTokens("test-secret", time.Hour),
			Profiles: profiles,
			Domain:   "farcasturd.xyz",
			Now:      func() time.Time { return signInIssuedAt.Add(time.Minute) },
		},
		key:  key,
		addr: addr,
	}
}

// request issues a nonce and signs a message for fid with key.
func (f *authFixture) request(t *testing.T, key *ecdsa.PrivateKey, fid int64) VerifyRequest {
	t.Helper()
	nonce, err := f.svc.Nonce(context.Background())
	if err != nil {
		t.Fatalf("Nonce: %v", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	msg := signInMessage(addr, fid, nonce)
	return VerifyRequest{Message: msg, Signature: personalSign(t, key, msg), Nonce: nonce}
}

func TestAuthVerify_IssuesToken(t *testing.T) {
	f := newAuthFixture(t)

	got, err := f.svc.Verify(context.Background(), f.request(t, f.key, 198116))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Token == "" || got.Session.FID != 198116 || got.Session.Address != strings.ToLower(f.addr) {
		t.Fatalf("unexpected sign-in %+v", got)
	}
}

func TestAuthVerify_Replay(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	req := f.request(t, f.key, 198116)

	if _, err := f.svc.Verify(ctx, req); err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	if _, err := f.svc.Verify(ctx, req); !errors.Is(err, ErrNonceUsed) {
		t.Fatalf("immediate replay must fail with ErrNonceUsed, got %v", err)
	}

	// The same captured message once the nonce TTL has passed.
	f.svc.Now = func() time.Time { return signInIssuedAt.Add(11 * time.Minute) }
	if _, err := f.svc.Verify(ctx, req); !errors.Is(err, auth.ErrExpired) {
		t.Fatalf("replay after TTL must fail with ErrExpired, got %v", err)
	}
	f.svc.Now = func() time.Time { return signInIssuedAt.Add(24 * time.Hour) }
	if _, err := f.svc.Verify(ctx, req); err == nil {
		t.Fatalf("replay a day later issued a token")
	}
}

func TestAuthVerify_NonceMustBeIssued(t *testing.T) {
	f := newAuthFixture(t)
	msg := signInMessage(f.addr, 198116, "selfmade1234")
	req := VerifyRequest{Message: msg, Signature: personalSign(t, f.key, msg), Nonce: "selfmade1234"}

	if _, err := f.svc.Verify(context.Background(), req); !errors.Is(err, ErrNonceUsed) {
		t.Fatalf("client-chosen nonce must be rejected, got %v", err)
	}
}

func TestAuthVerify_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	other, _ := crypto.GenerateKey()

	req := f.request(t, f.key, 198116)
	mismatched := req
	mismatched.Nonce = "otherotherother"
	if _, err := f.svc.Verify(ctx, mismatched); !errors.Is(err, ErrNonceMismatch) {
		t.Fatalf("nonce mismatch: %v", err)
	}

	forged := req
	forged.Signature = personalSign(t, other, req.Message)
	if _, err := f.svc.Verify(ctx, forged); !errors.Is(err, auth.ErrBadSignature) {
		t.Fatalf("wrong signer: %v", err)
	}

	// A valid signature for an address that is not linked to the fid.
	if _, err := f.svc.Verify(ctx, f.request(t, other, 198116)); !errors.Is(err, ErrAddressNotOwned) {
		t.Fatalf("unlinked address: %v", err)
	}

	f.svc.Domain = "farcasturd.app"
	if _, err := f.svc.Verify(ctx, req); !errors.Is(err, auth.ErrDomainMismatch) || !IsAuthInputError(err) {
		t.Fatalf("domain mismatch: %v", err)
	}
	f.svc.Domain = "farcasturd.xyz"

	f.svc.Now = func() time.Time { return signInIssuedAt.Add(-5 * time.Minute) }
	if _, err := f.svc.Verify(ctx, req); !errors.Is(err, auth.ErrExpired) {
		t.Fatalf("issued in the future: %v", err)
	}

	if _, err := f.svc.Verify(ctx, VerifyRequest{Message: "garbage", Signature: req.Signature, Nonce: req.Nonce}); !IsAuthInputError(err) {
		t.Fatalf("malformed message should be an input error: %v", err)
	}
}

func TestAuthNonce_IsRecorded(t *testing.T) {
	f := newAuthFixture(t)
	a, err := f.svc.Nonce(context.Background())
	if err != nil || len(a) != 32 {
		t.Fatalf("nonce = %q %v", a, err)
	}
	ok, err := f.svc.Nonces.Consume(context.Background(), a)
	if err != nil || !ok {
		t.Fatalf("issued nonce not consumable: %v %v", ok, err)
	}
}
