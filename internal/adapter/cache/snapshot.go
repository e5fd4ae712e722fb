// Package cache keeps per-owner loan snapshots in Redis.
//
// Every change to an owner's collection bumps snapver:<owner>. A snapshot is
// stored under snap:<owner>:<version> and never rewritten, so a reader that
// resolved version N either gets the whole collection for N or a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lendledger/internal/domain/loan"
)

const DefaultSnapshotTTL = 10 * time.Minute

type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSnapshotCache(rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

func versionKey(ownerID string) string { return "snapver:" + ownerID }

func snapshotKey(ownerID string, version int64) string {
	return fmt.Sprintf("snap:%s:%d", ownerID, version)
}

// Version is 0 for an owner that never changed.
func (c *SnapshotCache) Version(ctx context.Context, ownerID string) (int64, error) {
	v, err := c.rdb.Get(ctx, versionKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *SnapshotCache) Load(ctx context.Context, ownerID string, version int64) ([]loan.Loan, bool, error) {
	raw, err := c.rdb.Get(ctx, snapshotKey(ownerID, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out []loan.Loan
	if err := json.Unmarshal(raw, &out); err != nil {
		// a corrupt entry is a miss; drop it so Store can refill the version
		_ = c.rdb.Del(ctx, snapshotKey(ownerID, version)).Err()
		return nil, false, nil
	}
	return out, true, nil
}

// Store writes the snapshot only if no entry exists for that version.
func (c *SnapshotCache) Store(ctx context.Context, ownerID string, version int64, loans []loan.Loan) error {
	if loans == nil {
		loans = []loan.Loan{}
	}
	payload, err := json.Marshal(loans)
	if err != nil {
		return err
	}
	return c.rdb.SetNX(ctx, snapshotKey(ownerID, version), payload, c.ttl).Err()
}

// Bump moves the owner to a new version. Old snapshots expire on their own.
func (c *SnapshotCache) Bump(ctx context.Context, ownerID string) (int64, error) {
	return c.rdb.Incr(ctx, versionKey(ownerID)).Result()
}
