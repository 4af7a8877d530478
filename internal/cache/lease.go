package cache

import (
	"context"
	"fmt"
	"time"
)

// AcquireAccountLease takes a short SETNX lease for one account's batch
// processing. Queue delivery is at-least-once; the lease keeps a duplicate
// delivery of the same unit from interleaving with a run still in flight.
// Returns true when the lease was taken. With redis disabled the lease
// degrades to a no-op and the DB-transaction invariants stand alone.
func AcquireAccountLease(ctx context.Context, accountID uint, ttl time.Duration) (bool, error) {
	if !Enabled() {
		return true, nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	key := buildKey(fmt.Sprintf("batch:account_lease:%d", accountID))
	return redisClient.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
}

// ReleaseAccountLease drops the lease after the unit finishes.
func ReleaseAccountLease(ctx context.Context, accountID uint) error {
	if !Enabled() {
		return nil
	}
	key := buildKey(fmt.Sprintf("batch:account_lease:%d", accountID))
	return redisClient.Del(ctx, key).Err()
}
