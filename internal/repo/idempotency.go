// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the two "claim once" tables: mint claims
// that stop a second server-signed mint for the same FID, and issued sign-in
// nonces that are deleted when a signature uses them.
package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/farcasturd-backend/internal/domain"
)

// MintClaimRepo manages mint_claims rows.
type MintClaimRepo struct {
	DB *gorm.DB
}

// NewMintClaimRepo returns a MintClaimRepo bound to db.
func NewMintClaimRepo(db *gorm.DB) *MintClaimRepo {
	return &MintClaimRepo{DB: db}
}

// Claim takes the mint claim for fid, valid for ttl from now. An expired
// claim is removed first so a mint whose transaction never landed can be
// retried. Returns ErrDuplicate when a live claim exists.
func (r *MintClaimRepo) Claim(ctx context.Context, fid int64, to string, ttl time.Duration, now time.Time) (*domain.MintClaim, error) {
	db := r.DB.WithContext(ctx)
	if err := db.Where("fid = ? AND expires_at <= ?", fid, now).Delete(&domain.MintClaim{}).Error; err != nil {
		return nil, err
	}
	rec := &domain.MintClaim{
		FID:       fid,
		To:        strings.ToLower(to),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// SetTxHash records the submitted transaction hash on the claim for fid.
func (r *MintClaimRepo) SetTxHash(ctx context.Context, fid int64, txHash string) error {
	res := r.DB.WithContext(ctx).
		Model(&domain.MintClaim{}).
		Where("fid = ?", fid).
		Update("tx_hash", txHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Release deletes the claim for fid. Used when submission failed.
func (r *MintClaimRepo) Release(ctx context.Context, fid int64) error {
	return r.DB.WithContext(ctx).Where("fid = ?", fid).Delete(&domain.MintClaim{}).Error
}

// NonceRepo manages auth_nonces rows.
type NonceRepo struct {
	DB *gorm.DB
}

// NewNonceRepo returns a NonceRepo bound to db.
func NewNonceRepo(db *gorm.DB) *NonceRepo {
	return &NonceRepo{DB: db}
}

// Issue records nonce as outstanding until now+ttl.
func (r *NonceRepo) Issue(ctx context.Context, nonce string, ttl time.Duration, now time.Time) error {
	return r.DB.WithContext(ctx).Create(&domain.AuthNonce{
		Nonce:     nonce,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}).Error
}

// Consume deletes an outstanding, unexpired nonce. It reports true only for
// the caller whose delete removed the row; unknown, expired and already
// consumed nonces report false.
func (r *NonceRepo) Consume(ctx context.Context, nonce string, now time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("nonce = ? AND expires_at > ?", nonce, now).
		Delete(&domain.AuthNonce{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// PurgeExpired deletes nonces that expired before now without being used.
func (r *NonceRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.AuthNonce{})
	return res.RowsAffected, res.Error
}
