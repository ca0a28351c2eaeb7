package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

// ErrLockNotObtained is returned when another holder keeps the lock past all retries.
var ErrLockNotObtained = errors.New("lock not obtained")

// LockOptions tunes acquisition.
type LockOptions struct {
	TTL        time.Duration
	Retries    int
	RetryDelay time.Duration
}

// Locker hands out short-lived distributed locks keyed by resource.
type Locker struct {
	client *redislock.Client
	keys   *Client
	opts   LockOptions
}

// Lock is a held lock; Release must be called once the guarded work finishes.
type Lock interface {
	Release(ctx context.Context) error
}

// NewLocker builds a Locker on top of the shared Redis client.
func NewLocker(client *Client, opts LockOptions) (*Locker, error) {
	if client == nil || client.Raw() == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}
	return &Locker{
		client: redislock.New(client.Raw()),
		keys:   client,
		opts:   opts,
	}, nil
}

// Obtain acquires the lock for resource/id, retrying with a linear backoff.
func (l *Locker) Obtain(ctx context.Context, resource, id string) (Lock, error) {
	strategy := redislock.NoRetry()
	if l.opts.Retries > 0 {
		strategy = redislock.LimitRetry(redislock.LinearBackoff(l.opts.RetryDelay), l.opts.Retries)
	}
	lock, err := l.client.Obtain(ctx, l.keys.LockKey(resource, id), l.opts.TTL, &redislock.Options{
		RetryStrategy: strategy,
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrLockNotObtained
		}
		return nil, fmt.Errorf("obtain lock %s/%s: %w", resource, id, err)
	}
	return lock, nil
}
