package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{cmd: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "login:ip", 2, time.Second)
	require.NoError(t, err)
	require.True(t, allowed, "expected allowed on first request")
	require.EqualValues(t, 1, count)
	require.Len(t, mock.expireCalls, 1, "expected expire for first increment")

	allowed, count, err = client.FixedWindowAllow(ctx, "login:ip", 2, time.Second)
	require.NoError(t, err)
	require.True(t, allowed)
	require.EqualValues(t, 2, count)
	require.Len(t, mock.expireCalls, 1, "expire should not be set again")

	allowed, _, err = client.FixedWindowAllow(ctx, "login:ip", 2, time.Second)
	require.NoError(t, err)
	require.False(t, allowed, "expected limit reached")
}

func TestIncrWithTTLRepairsMissingExpiry(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{cmd: mock}

	// counter left behind without an expiry
	mock.incr["tg:rate_limit:inquiry:ip"] = 4

	allowed, count, err := client.FixedWindowAllow(ctx, "inquiry:ip", 10, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)
	require.EqualValues(t, 5, count)
	require.Equal(t, []expireCall{{key: "tg:rate_limit:inquiry:ip", ttl: time.Minute}}, mock.expireCalls)

	_, _, err = client.FixedWindowAllow(ctx, "inquiry:ip", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, mock.expireCalls, 1)
}

func TestPublishUsesNamespacedChannel(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{cmd: mock}

	require.NoError(t, client.Publish(context.Background(), "admin-events", []byte(`{"type":"new-inquiry"}`)))
	require.Equal(t, []string{"tg:channel:admin-events"}, mock.published)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	require.Equal(t, "tg:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	require.Equal(t, "tg:rate_limit:scope", client.RateLimitKey("scope"))
	require.Equal(t, "tg:session:access:abc", client.AccessSessionKey("abc"))
	require.Equal(t, "tg:lock:inquiry:42", client.LockKey("inquiry", "42"))
	require.Equal(t, "tg:lock:inquiry", client.LockKey("inquiry", ""), "empty parts are skipped")
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	require.Error(t, client.Ping(context.Background()))
	require.Error(t, client.Publish(context.Background(), "x", nil))
	_, err := client.Subscribe(context.Background(), "x")
	require.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/3", PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	require.Equal(t, 3, opts.DB)
	require.Equal(t, 7, opts.PoolSize)
	require.Equal(t, time.Second, opts.DialTimeout)
}

type mockCmdable struct {
	data        map[string]string
	incr        map[string]int64
	ttl         map[string]time.Duration
	expireCalls []expireCall
	published   []string
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
		ttl:  make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	m.ttl[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) TTL(ctx context.Context, key string) *redis.DurationCmd {
	if _, ok := m.incr[key]; !ok {
		return redis.NewDurationResult(-2, nil)
	}
	if ttl, ok := m.ttl[key]; ok {
		return redis.NewDurationResult(ttl, nil)
	}
	return redis.NewDurationResult(-1, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	m.published = append(m.published, channel)
	return redis.NewIntResult(1, nil)
}
