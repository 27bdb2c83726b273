package sentiment

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/types"
)

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	_, ok, err := m.Get(ctx, "TCS")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Put(ctx, types.SentimentScore{Symbol: "TCS", Combined: 0.4, CacheHit: true}, time.Hour))
	s, ok, err := m.Get(ctx, "TCS")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.4, s.Combined)
	assert.False(t, s.CacheHit, "stored entries never carry the hit flag")
}

func setupRedis(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	_, client, err := NewRedisStoreFromURL(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore_Integration(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	store := NewRedisStore(client)

	_, ok, err := store.Get(ctx, "HDFC")
	require.NoError(t, err)
	assert.False(t, ok)

	computed := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	in := types.SentimentScore{
		Symbol:     "HDFC",
		Combined:   -0.25,
		Sources:    map[string]types.SourceBreakdown{"news": {Score: -0.25, Quality: 0.9, Weight: 0.36}},
		ComputedAt: computed,
	}
	require.NoError(t, store.Put(ctx, in, time.Hour))

	out, ok, err := store.Get(ctx, "HDFC")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.Combined, out.Combined)
	assert.True(t, computed.Equal(out.ComputedAt))
	assert.Equal(t, in.Sources, out.Sources)

	ttl, err := client.TTL(ctx, redisKeyPrefix+"HDFC").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Hour)
}

func TestRedisStore_BacksFusionAcrossInstances(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	clock := clockwork.NewFakeClock()

	news := &stubSource{name: "news", score: 0.7, quality: 1}
	a := New([]interfaces.SampleSource{news}, DefaultWeights(), time.Hour, WithClock(clock), WithStore(NewRedisStore(client)))
	b := New([]interfaces.SampleSource{news}, DefaultWeights(), time.Hour, WithClock(clock), WithStore(NewRedisStore(client)))

	first, err := a.GetCached(ctx, "ITC")
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := b.GetCached(ctx, "ITC")
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.EqualValues(t, 1, news.calls.Load())
}
