package farcaster

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Lookup is the read side of the social graph used by services.
type Lookup interface {
	Profile(ctx context.Context, fid int64) (*Profile, error)
	ProfilesByFID(ctx context.Context, fids []int64) (map[int64]Profile, error)
	SearchUser(ctx context.Context, username string) (*Profile, error)
}

var _ Lookup = (*Client)(nil)
var _ Lookup = (*CachedLookup)(nil)

// CachedLookup keeps profiles in Redis for TTL. Cache failures are logged
// and fall through to the wrapped Lookup.
type CachedLookup struct {
	next Lookup
	rdb  redis.UniversalClient
	ttl  time.Duration
}

// NewCachedLookup wraps next with a Redis profile cache.
func NewCachedLookup(next Lookup, rdb redis.UniversalClient, ttl time.Duration) *CachedLookup {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedLookup{next: next, rdb: rdb, ttl: ttl}
}

func profileKey(fid int64) string { return "fc:profile:" + strconv.FormatInt(fid, 10) }

// Profile returns the cached profile or fetches and stores it.
func (c *CachedLookup) Profile(ctx context.Context, fid int64) (*Profile, error) {
	if p, ok := c.read(ctx, fid); ok {
		return p, nil
	}
	p, err := c.next.Profile(ctx, fid)
	if err != nil {
		return nil, err
	}
	c.write(ctx, *p)
	return p, nil
}

// ProfilesByFID serves cached entries and fetches only the misses.
func (c *CachedLookup) ProfilesByFID(ctx context.Context, fids []int64) (map[int64]Profile, error) {
	out := make(map[int64]Profile, len(fids))
	var missing []int64
	for _, fid := range fids {
		if p, ok := c.read(ctx, fid); ok {
			out[fid] = *p
			continue
		}
		missing = append(missing, fid)
	}
	if len(missing) == 0 {
		return out, nil
	}
	fetched, err := c.next.ProfilesByFID(ctx, missing)
	if err != nil {
		return nil, err
	}
	for fid, p := range fetched {
		out[fid] = p
		c.write(ctx, p)
	}
	return out, nil
}

// SearchUser is not cached; usernames can be reassigned.
func (c *CachedLookup) SearchUser(ctx context.Context, username string) (*Profile, error) {
	return c.next.SearchUser(ctx, username)
}

func (c *CachedLookup) read(ctx context.Context, fid int64) (*Profile, bool) {
	b, err := c.rdb.Get(ctx, profileKey(fid)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zerolog.Ctx(ctx).Warn().Err(err).Int64("fid", fid).Msg("profile cache read failed")
		}
		return nil, false
	}
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil || p.FID != fid {
		return nil, false
	}
	return &p, true
}

func (c *CachedLookup) write(ctx context.Context, p Profile) {
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, profileKey(p.FID), b, c.ttl).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("fid", p.FID).Msg("profile cache write failed")
	}
}
