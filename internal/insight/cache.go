package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/yourname/inkjournal/internal"
	"github.com/yourname/inkjournal/internal/auth"
	"github.com/yourname/inkjournal/internal/storage"
)

// Cache holds at most one record per owner key. Implementations do not
// expire records; freshness is decided by the caller.
type Cache interface {
	Get(ctx context.Context, ownerKey string) (*internal.InsightCacheRecord, bool, error)
	Put(ctx context.Context, ownerKey string, rec *internal.InsightCacheRecord) error
}

// StoreCache persists records through the durable store.
type StoreCache struct {
	repo storage.InsightCacheRepository
}

func NewStoreCache(repo storage.InsightCacheRepository) *StoreCache {
	return &StoreCache{repo: repo}
}

func (c *StoreCache) Get(ctx context.Context, ownerKey string) (*internal.InsightCacheRecord, bool, error) {
	rec, err := c.repo.GetInsightCache(ctx, ownerKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insight cache get: %w", err)
	}
	return rec, true, nil
}

func (c *StoreCache) Put(ctx context.Context, ownerKey string, rec *internal.InsightCacheRecord) error {
	r := cloneRecord(rec)
	r.OwnerKey = ownerKey
	if err := c.repo.PutInsightCache(ctx, r); err != nil {
		return fmt.Errorf("insight cache put: %w", err)
	}
	return nil
}

// MemoryCache is a process-local LRU bounded to a fixed number of owner keys.
type MemoryCache struct {
	lru *lru.Cache[string, *internal.InsightCacheRecord]
}

func NewMemoryCache(size int) (*MemoryCache, error) {
	l, err := lru.New[string, *internal.InsightCacheRecord](size)
	if err != nil {
		return nil, fmt.Errorf("insight memory cache: %w", err)
	}
	return &MemoryCache{lru: l}, nil
}

func (c *MemoryCache) Get(_ context.Context, ownerKey string) (*internal.InsightCacheRecord, bool, error) {
	rec, ok := c.lru.Get(ownerKey)
	if !ok {
		return nil, false, nil
	}
	return cloneRecord(rec), true, nil
}

func (c *MemoryCache) Put(_ context.Context, ownerKey string, rec *internal.InsightCacheRecord) error {
	r := cloneRecord(rec)
	r.OwnerKey = ownerKey
	c.lru.Add(ownerKey, r)
	return nil
}

func (c *MemoryCache) Len() int { return c.lru.Len() }

// CacheSelector picks the cache that holds a caller's records.
type CacheSelector interface {
	For(owner auth.Identity) Cache
}

// OwnerCache sends anonymous callers to one cache and identified owners to
// another. Routing follows the identity, not the key, so a user whose id
// equals AnonymousKey still lands in the durable cache.
type OwnerCache struct {
	identified Cache
	anonymous  Cache
}

func NewOwnerCache(identified, anonymous Cache) *OwnerCache {
	return &OwnerCache{identified: identified, anonymous: anonymous}
}

func (c *OwnerCache) For(owner auth.Identity) Cache {
	if owner.IsAnonymous() {
		return c.anonymous
	}
	return c.identified
}

func cloneRecord(rec *internal.InsightCacheRecord) *internal.InsightCacheRecord {
	r := *rec
	r.Payload = clonePayload(rec.Payload)
	return &r
}

func clonePayload(p *internal.WeeklyInsight) *internal.WeeklyInsight {
	if p == nil {
		return nil
	}
	out := *p
	out.MoodDrivers = append([]string{}, p.MoodDrivers...)
	out.Patterns = append([]string{}, p.Patterns...)
	return &out
}

// sameInstant compares at millisecond precision, which is what clients and
// every store backend can round-trip.
func sameInstant(a, b time.Time) bool {
	return a.Truncate(time.Millisecond).Equal(b.Truncate(time.Millisecond))
}

// evaluateCache decides whether rec can answer a request whose newest entry is latest.
func evaluateCache(rec *internal.InsightCacheRecord, found bool, lookupErr error, now, latest time.Time, ttl time.Duration) (bool, string) {
	switch {
	case lookupErr != nil:
		return false, CacheMissLookup
	case !found || rec == nil:
		return false, CacheMissNoCache
	case now.Sub(rec.CreatedAt) >= ttl:
		return false, CacheMissStale
	case !sameInstant(rec.LatestEntryAt, latest):
		return false, CacheMissNewerEntry
	case rec.Payload == nil:
		return false, CacheMissEmpty
	case rec.Payload.IsFallback:
		return false, CacheMissFallback
	}
	return true, CacheHit
}

var (
	_ Cache = (*StoreCache)(nil)
	_ Cache = (*MemoryCache)(nil)
	_ CacheSelector = (*OwnerCache)(nil)
)
