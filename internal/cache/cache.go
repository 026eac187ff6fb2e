package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/docqa/backend/internal/storage/models"
	"github.com/docqa/backend/pkg/utils"
)

const DefaultTTL = 5 * time.Minute

// Cache stores answers by query fingerprint for a fixed TTL.
type Cache interface {
	// Get returns the answer stored under key. Expired entries are removed
	// and reported as a miss.
	Get(ctx context.Context, key string) (models.Answer, bool, error)
	// Put stores answer under key, replacing any previous entry.
	Put(ctx context.Context, key string, answer models.Answer) error
	SweepExpired(ctx context.Context) (int, error)
	ClearAll(ctx context.Context) (int, error)
	Stats(ctx context.Context) (Stats, error)
	TTL() time.Duration
}

type Stats struct {
	Count   int
	TTL     time.Duration
	Entries []EntryStats
}

type EntryStats struct {
	Key       string
	Question  string
	Age       time.Duration
	ExpiresIn time.Duration
}

// KeyFor fingerprints a query. Questions differing only in case or
// surrounding whitespace share a key.
func KeyFor(question string, topK int) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	return utils.Fingerprint(normalized, strconv.Itoa(topK))
}
