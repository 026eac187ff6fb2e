package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/backend/internal/cache"
	"github.com/docqa/backend/internal/ranking"
	"github.com/docqa/backend/internal/storage/models"
	"github.com/docqa/backend/pkg/circuitbreaker"
)

func TestQueryKey(t *testing.T) {
	c := newClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "", 0)
	defer c.Close()

	assert.Equal(t, "docqa:query:abc", c.queryKey("abc"))
	assert.Equal(t, "docqa:query:*", c.pattern())
	assert.Equal(t, cache.DefaultTTL, c.TTL())
}

func TestEntryRoundTrip(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := storedEntry{
		Answer: models.Answer{
			Question:         "What is Docker?",
			Answer:           "Based on...",
			Sources:          []ranking.ScoredDocument{{DocID: "doc_005", SimilarityScore: 0.9381, Metadata: map[string]any{"tool": "docker"}}},
			ProcessingTimeMS: 0.42,
		},
		CreatedAt: created,
	}

	data, err := encodeEntry(in)
	require.NoError(t, err)

	out, err := decodeEntry(data)
	require.NoError(t, err)
	assert.Equal(t, in.Answer.Question, out.Answer.Question)
	assert.Equal(t, in.Answer.Sources[0].DocID, out.Answer.Sources[0].DocID)
	assert.Equal(t, "docker", out.Answer.Sources[0].Metadata["tool"])
	assert.True(t, created.Equal(out.CreatedAt))
}

func TestDecodeEntry_Invalid(t *testing.T) {
	_, err := decodeEntry([]byte("not json"))
	assert.Error(t, err)
}

func TestGet_UnreachableServerOpensBreaker(t *testing.T) {
	c := newClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	}), "test", time.Minute)
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, ok, err := c.Get(ctx, "k")
		assert.Error(t, err)
		assert.False(t, ok)
	}

	_, _, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newMiniredisClient(t *testing.T, ttl time.Duration) (*Client, *miniredis.Miniredis, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := newClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test", ttl)
	t.Cleanup(func() { c.Close() })

	clk := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	c.now = clk.now
	return c, mr, clk
}

func TestGet_ExpiredEntryIsDeleted(t *testing.T) {
	c, mr, clk := newMiniredisClient(t, time.Minute)
	ctx := context.Background()
	key := cache.KeyFor("What is Docker?", 3)

	require.NoError(t, c.Put(ctx, key, models.Answer{Question: "What is Docker?", Answer: "Based on..."}))
	assert.Equal(t, time.Minute, mr.TTL(c.queryKey(key)))

	clk.advance(time.Minute)
	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Based on...", got.Answer)

	clk.advance(time.Second)
	_, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(c.queryKey(key)))
}

func TestGet_Missing(t *testing.T) {
	c, _, _ := newMiniredisClient(t, time.Minute)

	_, ok, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPut_OverwriteRestampsCreation(t *testing.T) {
	c, _, clk := newMiniredisClient(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", models.Answer{Answer: "first"}))
	clk.advance(50 * time.Second)
	require.NoError(t, c.Put(ctx, "k", models.Answer{Answer: "second"}))
	clk.advance(20 * time.Second)

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", got.Answer)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Count)
	assert.Equal(t, 20*time.Second, stats.Entries[0].Age)
}

func TestSweepExpired(t *testing.T) {
	c, mr, clk := newMiniredisClient(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "old", models.Answer{Answer: "a"}))
	clk.advance(40 * time.Second)
	require.NoError(t, c.Put(ctx, "fresh", models.Answer{Answer: "b"}))
	require.NoError(t, mr.Set("test:query:garbage", "not json"))
	require.NoError(t, mr.Set("other:key", "x"))
	clk.advance(30 * time.Second)

	removed, err := c.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, mr.Exists(c.queryKey("old")))
	assert.True(t, mr.Exists(c.queryKey("fresh")))
	assert.True(t, mr.Exists("test:query:garbage"))
	assert.True(t, mr.Exists("other:key"))

	removed, err = c.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestClearAll(t *testing.T) {
	c, mr, _ := newMiniredisClient(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "a", models.Answer{Answer: "a"}))
	require.NoError(t, c.Put(ctx, "b", models.Answer{Answer: "b"}))
	require.NoError(t, mr.Set("other:key", "x"))

	removed, err := c.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.True(t, mr.Exists("other:key"))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Count)
	assert.Empty(t, stats.Entries)

	removed, err = c.ClearAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStats(t *testing.T) {
	c, _, clk := newMiniredisClient(t, time.Minute)
	ctx := context.Background()
	stale := cache.KeyFor("What is Python?", 3)
	key := cache.KeyFor("What is Docker?", 3)

	require.NoError(t, c.Put(ctx, stale, models.Answer{Question: "What is Python?"}))
	clk.advance(55 * time.Second)
	require.NoError(t, c.Put(ctx, key, models.Answer{Question: "What is Docker?"}))
	clk.advance(10 * time.Second)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, stats.TTL)
	require.Equal(t, 1, stats.Count)
	require.Len(t, stats.Entries, 1)

	entry := stats.Entries[0]
	assert.Equal(t, key, entry.Key)
	assert.Equal(t, "What is Docker?", entry.Question)
	assert.Equal(t, 10*time.Second, entry.Age)
	assert.Equal(t, 50*time.Second, entry.ExpiresIn)
}
