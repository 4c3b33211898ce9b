package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sweepLeaderKey = "sweep:leader"

// renewScript extends the lease only if this instance still holds it.
var renewScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// releaseScript deletes the lease only if this instance still holds it.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// LeaderElector implements Redis-based leader election using SETNX with TTL.
// Used to ensure only one replica runs the reveal sweep ticker at a time.
type LeaderElector struct {
	rdb        redis.Cmdable
	instanceID string
	lockKey    string
	lockTTL    time.Duration
}

// NewLeaderElector creates a leader election coordinator.
// instanceID should be unique per instance (e.g., hostname-PID). ttl should
// exceed the sweep interval so the leader keeps its lease between ticks.
func NewLeaderElector(rdb redis.Cmdable, instanceID string, ttl time.Duration) *LeaderElector {
	return &LeaderElector{
		rdb:        rdb,
		instanceID: instanceID,
		lockKey:    sweepLeaderKey,
		lockTTL:    ttl,
	}
}

// TryAcquire attempts to become, or stay, the leader.
// Returns true if this instance holds leadership after the call.
func (l *LeaderElector) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.lockKey, l.instanceID, l.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire leader lock: %w", err)
	}
	if ok {
		return true, nil
	}

	if err := l.Renew(ctx); err != nil {
		if errors.Is(err, errLeaseNotHeld) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var errLeaseNotHeld = errors.New("leader lock held by another instance")

// Renew extends the lease. Returns an error if we are no longer the leader.
func (l *LeaderElector) Renew(ctx context.Context) error {
	renewed, err := renewScript.Run(ctx, l.rdb, []string{l.lockKey}, l.instanceID, l.lockTTL.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to renew leader lock: %w", err)
	}
	if renewed == 0 {
		return errLeaseNotHeld
	}
	return nil
}

// Release voluntarily releases leadership.
// Should be called on graceful shutdown.
func (l *LeaderElector) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.lockKey}, l.instanceID).Err(); err != nil {
		return fmt.Errorf("failed to release leader lock: %w", err)
	}
	return nil
}
