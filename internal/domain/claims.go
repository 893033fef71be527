package domain

import "time"

// MintClaim marks a server-signed mint for an FID as in flight. The unique
// FID column lets exactly one request obtain a transaction hash while the
// chain has not yet reflected the mint. Claims past ExpiresAt may be retaken.
type MintClaim struct {
	FID       int64     `gorm:"column:fid;primaryKey;autoIncrement:false"`
	To        string    `gorm:"type:varchar(42);not null"`
	TxHash    string    `gorm:"type:varchar(66)"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (MintClaim) TableName() string { return "mint_claims" }

// AuthNonce is a sign-in nonce handed out by the server. A signed message is
// only accepted while its nonce row exists and is unexpired; verification
// deletes the row, so each nonce signs in at most once.
type AuthNonce struct {
	Nonce     string    `gorm:"type:varchar(128);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (AuthNonce) TableName() string { return "auth_nonces" }
