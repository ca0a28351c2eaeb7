package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values   map[string]string
	ttls     map[string]time.Duration
	setNXErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setNXErr != nil {
		return false, f.setNXErr
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key], f.ttls[key] = value.(string), ttl
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.values[key], f.ttls[key] = value.(string), ttl
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "tg:idempotency:" + scope + ":" + id
}

func TestRunMarksEventDone(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)
	manager.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	eventID := uuid.New()
	key := "tg:idempotency:evt:processed:inquiry-notifications:" + eventID.String()

	calls := 0
	handle := func(ctx context.Context) error {
		calls++
		require.Equal(t, claimValue, store.values[key], "claim must be held while handling")
		require.Equal(t, DefaultClaimTTL, store.ttls[key])
		return nil
	}

	skipped, err := manager.Run(context.Background(), "inquiry-notifications", eventID, handle)
	require.NoError(t, err)
	require.False(t, skipped)
	require.Equal(t, "2026-03-01T09:00:00Z", store.values[key])
	require.Equal(t, 24*time.Hour, store.ttls[key])

	skipped, err = manager.Run(context.Background(), "inquiry-notifications", eventID, handle)
	require.NoError(t, err)
	require.True(t, skipped)
	require.Equal(t, 1, calls)
}

func TestRunReportsInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()
	store.values["tg:idempotency:evt:processed:c:"+eventID.String()] = claimValue

	_, err = manager.Run(context.Background(), "c", eventID, func(context.Context) error {
		t.Fatal("handler must not run")
		return nil
	})
	require.ErrorIs(t, err, ErrInFlight)
}

func TestRunReleasesClaimOnFailure(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	skipped, err := manager.Run(context.Background(), "inquiry-notifications", uuid.New(), func(context.Context) error {
		return errors.New("smtp down")
	})
	require.EqualError(t, err, "smtp down")
	require.False(t, skipped)
	require.Empty(t, store.values)
}

func TestRunPropagatesStoreErrors(t *testing.T) {
	store := newFakeStore()
	store.setNXErr = errors.New("redis down")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.Run(context.Background(), "inquiry-notifications", uuid.New(), func(context.Context) error {
		t.Fatal("handler must not run")
		return nil
	})
	require.Error(t, err)
}

func TestManagerValidatesInput(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	require.Error(t, err)
	_, err = NewManager(newFakeStore(), -time.Second)
	require.Error(t, err)

	manager, err := NewManager(newFakeStore(), time.Minute)
	require.NoError(t, err)
	require.Equal(t, time.Minute, manager.claimTTL, "claim never outlives the record")

	noop := func(context.Context) error { return nil }
	_, err = manager.Run(context.Background(), "", uuid.New(), noop)
	require.Error(t, err)
	_, err = manager.Run(context.Background(), "c", uuid.Nil, noop)
	require.Error(t, err)
	require.Error(t, manager.Forget(context.Background(), "", uuid.New()))
}
