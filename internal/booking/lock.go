package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld means another booking for the same date is in flight.
var ErrLockHeld = errors.New("booking: lock held")

// lockTTL bounds how long a crashed holder can block bookings for a date.
// It must outlast the longest booking flow, which makes several vendor
// calls each bounded by the HTTP client's 30s timeout.
const lockTTL = 5 * time.Minute

// releaseScript deletes the lock only when the caller still holds it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lock is a redis lease serializing bookings per calendar date. Unlike an
// in-process mutex it holds across service replicas.
type Lock struct {
	rdb *redis.Client
}

// NewLock builds a lock manager on the shared redis client.
func NewLock(rdb *redis.Client) *Lock {
	return &Lock{rdb: rdb}
}

// Lease is an acquired lock. Release it on every path.
type Lease struct {
	rdb   *redis.Client
	key   string
	token string
}

// Acquire takes the booking lock for a date. ErrLockHeld when a concurrent
// booking holds it; callers surface that as a retryable conflict.
func (l *Lock) Acquire(ctx context.Context, date string) (*Lease, error) {
	key := "booking:lock:" + date
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("booking: acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lease{rdb: l.rdb, key: key, token: token}, nil
}

// Held reports whether the lease still belongs to this holder. A lease is
// lost when the TTL expires before the critical section finishes; the next
// acquirer then owns the key.
func (le *Lease) Held(ctx context.Context) (bool, error) {
	if le == nil {
		return false, nil
	}
	val, err := le.rdb.Get(ctx, le.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("booking: verify lock: %w", err)
	}
	return val == le.token, nil
}

// Release drops the lease. Safe to call after TTL expiry: an expired or
// stolen lease is simply not deleted.
func (le *Lease) Release(ctx context.Context) {
	if le == nil {
		return
	}
	_ = releaseScript.Run(ctx, le.rdb, []string{le.key}, le.token).Err()
}
