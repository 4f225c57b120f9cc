package analyzer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix  = "analyzer:result:" // analyzer:result:{phash}
	cacheIndexKey   = "analyzer:hashes"  // set of cached phash values
	cacheTTL        = 24 * time.Hour
	nearMatchRadius = 5 // max hamming distance treated as the same page
)

// CachingClient wraps a Client with a Redis-backed result cache keyed by
// the perceptual hash of the input screenshot. Repeated or near-identical
// pages do not re-invoke the external service.
type CachingClient struct {
	inner Client
	rdb   *redis.Client
}

// NewCachingClient wraps inner with the cache.
func NewCachingClient(inner Client, rdb *redis.Client) *CachingClient {
	return &CachingClient{inner: inner, rdb: rdb}
}

// AnalyzeLayout consults the cache before delegating to the inner client.
// Cache failures are treated as misses; the boundary contract is owned by
// the inner client.
func (c *CachingClient) AnalyzeLayout(ctx context.Context, screenshot []byte, domSummary string) (*Analysis, error) {
	hash, hashErr := HashScreenshot(screenshot)
	if hashErr == nil {
		if cached := c.lookup(ctx, hash); cached != nil {
			recordCacheHit()
			return cached, nil
		}
		recordCacheMiss()
	}

	analysis, err := c.inner.AnalyzeLayout(ctx, screenshot, domSummary)
	if err != nil {
		return nil, err
	}

	if hashErr == nil {
		c.store(ctx, hash, analysis)
	}
	return analysis, nil
}

// CompareScreenshots is not cached: the pair key space is too sparse for
// hits to pay for the bookkeeping.
func (c *CachingClient) CompareScreenshots(ctx context.Context, source, target []byte) (*Comparison, error) {
	return c.inner.CompareScreenshots(ctx, source, target)
}

func (c *CachingClient) lookup(ctx context.Context, hash PerceptualHash) *Analysis {
	// Exact hit first.
	if a := c.get(ctx, hash.String()); a != nil {
		return a
	}

	// Near-match scan over the cached hash index.
	members, err := c.rdb.SMembers(ctx, cacheIndexKey).Result()
	if err != nil {
		return nil
	}
	for _, member := range members {
		v, err := strconv.ParseUint(member, 16, 64)
		if err != nil {
			continue
		}
		if hash.Distance(PerceptualHash(v)) <= nearMatchRadius {
			if a := c.get(ctx, member); a != nil {
				return a
			}
		}
	}
	return nil
}

func (c *CachingClient) get(ctx context.Context, key string) *Analysis {
	data, err := c.rdb.Get(ctx, cacheKeyPrefix+key).Result()
	if err != nil {
		return nil
	}
	var a Analysis
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil
	}
	return &a
}

func (c *CachingClient) store(ctx context.Context, hash PerceptualHash, a *Analysis) {
	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	key := hash.String()
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, cacheKeyPrefix+key, data, cacheTTL)
	pipe.SAdd(ctx, cacheIndexKey, key)
	pipe.Expire(ctx, cacheIndexKey, cacheTTL)
	// Cache writes are best effort.
	_, _ = pipe.Exec(ctx)
}
