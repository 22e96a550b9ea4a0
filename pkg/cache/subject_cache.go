package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/deskhive/deskhive/pkg/identity"
	"github.com/deskhive/deskhive/pkg/observability"
)

// DefaultTTL keeps cached subjects short-lived. Role and tenant changes must
// land quickly; the cache trades at most this much staleness for not hitting
// the subjects table on every request.
const DefaultTTL = 30 * time.Second

const localSize = 4096

// SubjectCache is a two-tier cache for resolved subjects keyed by external
// id: an in-process LRU in front of Redis so a fleet shares invalidations.
type SubjectCache struct {
	local   *expirable.LRU[string, *identity.SubjectRecord]
	redis   *redis.Client
	ttl     time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewSubjectCache creates a subject cache. metrics may be nil.
func NewSubjectCache(redisClient *redis.Client, ttl time.Duration, logger *observability.Logger, metrics *observability.Metrics) *SubjectCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SubjectCache{
		local:   expirable.NewLRU[string, *identity.SubjectRecord](localSize, nil, ttl),
		redis:   redisClient,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func cacheKey(externalID string) string {
	return "subject:" + externalID
}

// Get returns a cached subject, trying the local tier first.
func (c *SubjectCache) Get(ctx context.Context, externalID string) (*identity.SubjectRecord, bool) {
	if record, ok := c.local.Get(externalID); ok {
		c.hit("local")
		return record, true
	}
	c.miss("local")

	if c.redis == nil {
		return nil, false
	}

	data, err := c.redis.Get(ctx, cacheKey(externalID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Debug("subject cache read failed")
		}
		c.miss("redis")
		return nil, false
	}

	var record identity.SubjectRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		c.miss("redis")
		return nil, false
	}

	c.hit("redis")
	c.local.Add(externalID, &record)
	return &record, true
}

// Set stores a subject in both tiers.
func (c *SubjectCache) Set(ctx context.Context, record *identity.SubjectRecord) error {
	c.local.Add(record.ExternalID, record)

	if c.redis == nil {
		return nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal subject: %w", err)
	}
	if err := c.redis.Set(ctx, cacheKey(record.ExternalID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache subject: %w", err)
	}
	return nil
}

// Invalidate drops a subject from both tiers. Call on role change,
// deactivation, and invitation accept so stale privileges never outlive the
// write.
func (c *SubjectCache) Invalidate(ctx context.Context, externalID string) error {
	c.local.Remove(externalID)

	if c.redis == nil {
		return nil
	}
	if err := c.redis.Del(ctx, cacheKey(externalID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate subject: %w", err)
	}
	return nil
}

func (c *SubjectCache) hit(tier string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues("subject", tier).Inc()
	}
}

func (c *SubjectCache) miss(tier string) {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues("subject", tier).Inc()
	}
}
