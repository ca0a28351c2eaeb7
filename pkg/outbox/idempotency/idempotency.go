// Package idempotency makes event consumers effectively-once on top of an
// at-least-once transport.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/tutorgoat/tutorgoat-backend/pkg/redis"
)

const (
	claimValue = "processing"
	// DefaultClaimTTL bounds how long a crashed handler blocks redelivery.
	DefaultClaimTTL = 5 * time.Minute
)

// ErrInFlight means another delivery of the same event is being handled.
// Consumers should nack so the event comes back later.
var ErrInFlight = errors.New("event is being processed by another delivery")

// Store is the Redis surface the manager needs.
type Store interface {
	redis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Manager records handled events per consumer under
// tg:idempotency:evt:processed:<consumer>:<event_id>. A key first holds a
// short-lived claim while the handler runs, then a completion stamp kept for
// the configured TTL.
type Manager struct {
	store    Store
	ttl      time.Duration
	claimTTL time.Duration
	now      func() time.Time
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	claim := DefaultClaimTTL
	if ttl > 0 && ttl < claim {
		claim = ttl
	}
	return &Manager{store: store, ttl: ttl, claimTTL: claim, now: time.Now}, nil
}

// Run calls handle unless the event was already handled, in which case it
// reports skipped. A handle error releases the claim so a redelivery retries.
func (m *Manager) Run(ctx context.Context, consumer string, eventID uuid.UUID, handle func(context.Context) error) (skipped bool, err error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}

	claimed, err := m.store.SetNX(ctx, key, claimValue, m.claimTTL)
	if err != nil {
		return false, err
	}
	if !claimed {
		current, err := m.store.Get(ctx, key)
		if err == nil && current == claimValue {
			return false, ErrInFlight
		}
		return true, nil
	}

	bg := context.WithoutCancel(ctx)
	if err := handle(ctx); err != nil {
		return false, multierr.Append(err, m.store.Del(bg, key))
	}
	return false, m.store.Set(bg, key, m.now().UTC().Format(time.RFC3339), m.ttl)
}

// Forget drops the record so the event will be handled again.
func (m *Manager) Forget(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case eventID == uuid.Nil:
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
