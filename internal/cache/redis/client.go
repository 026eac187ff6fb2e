package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/cache"
	"github.com/docqa/backend/internal/storage/models"
	"github.com/docqa/backend/pkg/circuitbreaker"
	"github.com/docqa/backend/pkg/logger"
	"github.com/docqa/backend/pkg/retry"
)

// Client is a cache.Cache shared between replicas. Redis expires keys on its
// own; the stored creation time is still checked on read so a key is never
// served past the TTL.
type Client struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	cb     *circuitbreaker.Breaker
	retry  retry.Config
	now    func() time.Time
}

type storedEntry struct {
	Answer    models.Answer `json:"answer"`
	CreatedAt time.Time     `json:"created_at"`
}

var _ cache.Cache = (*Client)(nil)

func NewClient(ctx context.Context, host string, port int, password string, db int, prefix string, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	c := newClient(client, prefix, ttl)

	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis cache initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", host, port)),
		zap.Duration("ttl", ttl),
	)

	return c, nil
}

func newClient(client *redis.Client, prefix string, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	if prefix == "" {
		prefix = "docqa"
	}
	return &Client{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		cb: circuitbreaker.New("redis-cache", circuitbreaker.Config{
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
			Logger:           logger.GetLogger(),
		}),
		retry: retry.Config{
			MaxAttempts:  2,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     200 * time.Millisecond,
			Logger:       logger.GetLogger(),
		},
		now: time.Now,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) TTL() time.Duration { return c.ttl }

func (c *Client) queryKey(key string) string {
	return fmt.Sprintf("%s:query:%s", c.prefix, key)
}

func (c *Client) pattern() string {
	return c.queryKey("*")
}

func (c *Client) Get(ctx context.Context, key string) (models.Answer, bool, error) {
	var (
		data []byte
		hit  bool
	)
	err := c.cb.Execute(func() error {
		var err error
		data, err = c.client.Get(ctx, c.queryKey(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		hit = true
		return nil
	})
	if err != nil {
		return models.Answer{}, false, fmt.Errorf("failed to get query cache: %w", err)
	}
	if !hit {
		return models.Answer{}, false, nil
	}

	entry, err := decodeEntry(data)
	if err != nil {
		return models.Answer{}, false, err
	}

	if c.now().Sub(entry.CreatedAt) > c.ttl {
		if err := c.client.Del(ctx, c.queryKey(key)).Err(); err != nil {
			logger.Warn("Failed to delete expired cache key", zap.String("cache_key", key), zap.Error(err))
		}
		return models.Answer{}, false, nil
	}

	logger.Debug("Query cache hit", zap.String("cache_key", key))
	return entry.Answer, true, nil
}

func (c *Client) Put(ctx context.Context, key string, answer models.Answer) error {
	data, err := encodeEntry(storedEntry{Answer: answer, CreatedAt: c.now()})
	if err != nil {
		return err
	}

	err = c.cb.Execute(func() error {
		return retry.Do(ctx, c.retry, func(ctx context.Context) error {
			return c.client.Set(ctx, c.queryKey(key), data, c.ttl).Err()
		})
	})
	if err != nil {
		return fmt.Errorf("failed to set query cache: %w", err)
	}

	logger.Debug("Query cached", zap.String("cache_key", key), zap.Duration("ttl", c.ttl))
	return nil
}

// SweepExpired removes keys whose stored creation time is older than the TTL.
// Redis normally gets there first, so this usually returns zero.
func (c *Client) SweepExpired(ctx context.Context) (int, error) {
	removed := 0
	err := c.scan(ctx, func(redisKey string, entry storedEntry) error {
		if c.now().Sub(entry.CreatedAt) <= c.ttl {
			return nil
		}
		if err := c.client.Del(ctx, redisKey).Err(); err != nil {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

func (c *Client) ClearAll(ctx context.Context) (int, error) {
	removed := 0
	iter := c.client.Scan(ctx, 0, c.pattern(), 0).Iterator()
	for iter.Next(ctx) {
		n, err := c.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
			continue
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Query cache cleared", zap.Int("entries_removed", removed))
	return removed, nil
}

func (c *Client) Stats(ctx context.Context) (cache.Stats, error) {
	now := c.now()
	stats := cache.Stats{TTL: c.ttl}
	err := c.scan(ctx, func(redisKey string, entry storedEntry) error {
		age := now.Sub(entry.CreatedAt)
		if age > c.ttl {
			return nil
		}
		stats.Entries = append(stats.Entries, cache.EntryStats{
			Key:       redisKey[len(c.queryKey("")):],
			Question:  entry.Answer.Question,
			Age:       age,
			ExpiresIn: c.ttl - age,
		})
		return nil
	})
	stats.Count = len(stats.Entries)
	return stats, err
}

func (c *Client) scan(ctx context.Context, fn func(redisKey string, entry storedEntry) error) error {
	iter := c.client.Scan(ctx, 0, c.pattern(), 0).Iterator()
	for iter.Next(ctx) {
		data, err := c.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read cache key: %w", err)
		}
		entry, err := decodeEntry(data)
		if err != nil {
			logger.Warn("Skipping undecodable cache entry", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		if err := fn(iter.Val(), entry); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}
	return nil
}

func encodeEntry(e storedEntry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	return data, nil
}

func decodeEntry(data []byte) (storedEntry, error) {
	var e storedEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return storedEntry{}, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return e, nil
}
