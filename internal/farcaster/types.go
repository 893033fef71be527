// Package farcaster is the social-graph boundary. It talks to the Neynar v2
// API and converts its loosely-typed JSON into validated Profile and Cast
// values before anything else in the service sees them.
package farcaster

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("farcaster: api key not configured")
	// ErrUserNotFound is returned when the API has no user for the query.
	ErrUserNotFound = errors.New("farcaster: user not found")
	// ErrInvalidPayload is returned when a response cannot be coerced.
	ErrInvalidPayload = errors.New("farcaster: invalid payload")
)

// Profile is a validated Farcaster user.
type Profile struct {
	FID         int64    `json:"fid"`
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	PfpURL      string   `json:"pfpUrl,omitempty"`
	Custody     string   `json:"custody,omitempty"`
	Verified    []string `json:"verified,omitempty"` // verified eth addresses, lowercase
}

// PrimaryWallet is the first verified address, falling back to custody.
func (p Profile) PrimaryWallet() string {
	if len(p.Verified) > 0 {
		return p.Verified[0]
	}
	return p.Custody
}

// OwnsAddress reports whether addr is the custody or a verified address.
func (p Profile) OwnsAddress(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return false
	}
	if p.Custody == addr {
		return true
	}
	for _, v := range p.Verified {
		if v == addr {
			return true
		}
	}
	return false
}

// Author identifies who wrote a cast.
type Author struct {
	FID      int64  `json:"fid"`
	Username string `json:"username"`
}

// Cast is a validated Farcaster post.
type Cast struct {
	Hash       string `json:"hash"`
	Text       string `json:"text"`
	ParentHash string `json:"parent_hash,omitempty"`
	ParentURL  string `json:"parent_url,omitempty"`
	Author     Author `json:"author"`
}

// IsReply reports whether the cast has a parent reference.
func (c Cast) IsReply() bool { return c.ParentHash != "" || c.ParentURL != "" }

// flexInt accepts a JSON number or a numeric string.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*f = flexInt(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	i, err := n.Int64()
	if err != nil {
		fl, ferr := n.Float64()
		if ferr != nil {
			return err
		}
		i = int64(fl)
	}
	*f = flexInt(i)
	return nil
}

// rawUser mirrors the Neynar user object; every field is optional.
type rawUser struct {
	FID            flexInt `json:"fid"`
	Username       string  `json:"username"`
	DisplayName    string  `json:"display_name"`
	PfpURL         string  `json:"pfp_url"`
	CustodyAddress string  `json:"custody_address"`
	Verifications  []any   `json:"verifications"`
	Profile        *struct {
		Bio *struct {
			Text string `json:"text"`
		} `json:"bio"`
	} `json:"profile"`
	VerifiedAddresses *struct {
		EthAddresses []any `json:"eth_addresses"`
	} `json:"verified_addresses"`
}

type rawCast struct {
	Hash       string   `json:"hash"`
	Text       string   `json:"text"`
	ParentHash *string  `json:"parent_hash"`
	ParentURL  *string  `json:"parent_url"`
	Author     *rawUser `json:"author"`
}

// toProfile validates and normalizes a raw user.
func (u rawUser) toProfile() (Profile, error) {
	if u.FID <= 0 {
		return Profile{}, fmt.Errorf("%w: user fid %d", ErrInvalidPayload, u.FID)
	}
	p := Profile{
		FID:         int64(u.FID),
		Username:    strings.TrimSpace(u.Username),
		DisplayName: strings.TrimSpace(u.DisplayName),
		PfpURL:      strings.TrimSpace(u.PfpURL),
		Custody:     normalizeAddress(u.CustodyAddress),
	}
	if u.Profile != nil && u.Profile.Bio != nil {
		p.Bio = strings.TrimSpace(u.Profile.Bio.Text)
	}
	seen := map[string]struct{}{}
	add := func(vals []any) {
		for _, v := range vals {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if a := normalizeAddress(s); a != "" {
				if _, dup := seen[a]; !dup {
					seen[a] = struct{}{}
					p.Verified = append(p.Verified, a)
				}
			}
		}
	}
	add(u.Verifications)
	if u.VerifiedAddresses != nil {
		add(u.VerifiedAddresses.EthAddresses)
	}
	return p, nil
}

// toCast validates and normalizes a raw cast.
func (c rawCast) toCast() (Cast, error) {
	if strings.TrimSpace(c.Hash) == "" {
		return Cast{}, fmt.Errorf("%w: cast without hash", ErrInvalidPayload)
	}
	if c.Author == nil || c.Author.FID <= 0 {
		return Cast{}, fmt.Errorf("%w: cast %s without author", ErrInvalidPayload, c.Hash)
	}
	out := Cast{
		Hash: strings.TrimSpace(c.Hash),
		Text: c.Text,
		Author: Author{
			FID:      int64(c.Author.FID),
			Username: strings.TrimSpace(c.Author.Username),
		},
	}
	if c.ParentHash != nil {
		out.ParentHash = strings.TrimSpace(*c.ParentHash)
	}
	if c.ParentURL != nil {
		out.ParentURL = strings.TrimSpace(*c.ParentURL)
	}
	return out, nil
}

// DecodeCast coerces an untyped cast JSON object (as delivered by webhooks).
func DecodeCast(raw json.RawMessage) (Cast, error) {
	var rc rawCast
	if err := json.Unmarshal(raw, &rc); err != nil {
		return Cast{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return rc.toCast()
}

// normalizeAddress lowercases a valid hex address; anything else becomes "".
func normalizeAddress(s string) string {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return ""
	}
	return strings.ToLower(common.HexToAddress(s).Hex())
}
