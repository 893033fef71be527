package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceStore tracks the nonces the server handed out. Issue records a nonce
// for its TTL; Consume returns true exactly once for an issued, unexpired
// nonce across all instances sharing the store. A consumed nonce is gone, so
// a captured message cannot be replayed once its TTL lapses either.
type NonceStore interface {
	Issue(ctx context.Context, nonce string) error
	Consume(ctx context.Context, nonce string) (bool, error)
	TTL() time.Duration
}

const redisNoncePrefix = "auth:nonce:"

// RedisNonces keeps issued nonces as keys with an expiry and consumes them
// with GETDEL.
type RedisNonces struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedisNonces returns a Redis-backed NonceStore.
func NewRedisNonces(rdb redis.UniversalClient, ttl time.Duration) *RedisNonces {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisNonces{rdb: rdb, ttl: ttl}
}

// TTL implements NonceStore.
func (r *RedisNonces) TTL() time.Duration { return r.ttl }

// Issue implements NonceStore.
func (r *RedisNonces) Issue(ctx context.Context, nonce string) error {
	return r.rdb.Set(ctx, redisNoncePrefix+nonce, 1, r.ttl).Err()
}

// Consume implements NonceStore.
func (r *RedisNonces) Consume(ctx context.Context, nonce string) (bool, error) {
	err := r.rdb.GetDel(ctx, redisNoncePrefix+nonce).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return err == nil, err
}

// NonceTable is the relational side of the nonce set.
type NonceTable interface {
	Issue(ctx context.Context, nonce string, ttl time.Duration, now time.Time) error
	Consume(ctx context.Context, nonce string, now time.Time) (bool, error)
}

// DBNonces keeps issued nonces in the auth_nonces table.
type DBNonces struct {
	table NonceTable
	ttl   time.Duration
	now   func() time.Time
}

// NewDBNonces returns a table-backed NonceStore.
func NewDBNonces(table NonceTable, ttl time.Duration) *DBNonces {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &DBNonces{table: table, ttl: ttl, now: time.Now}
}

// TTL implements NonceStore.
func (d *DBNonces) TTL() time.Duration { return d.ttl }

// Issue implements NonceStore.
func (d *DBNonces) Issue(ctx context.Context, nonce string) error {
	return d.table.Issue(ctx, nonce, d.ttl, d.now().UTC())
}

// Consume implements NonceStore.
func (d *DBNonces) Consume(ctx context.Context, nonce string) (bool, error) {
	return d.table.Consume(ctx, nonce, d.now().UTC())
}
