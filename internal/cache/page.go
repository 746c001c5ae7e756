package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"yatube/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// PageCache stores rendered pages for a fixed TTL. Entries are never
// invalidated by writes; they expire or are dropped by Clear.
// Without Redis it keeps entries in process memory.
type PageCache struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	local map[string]pageEntry
}

type pageEntry struct {
	body    []byte
	expires time.Time
}

// NewPageCache returns a cache over rdb (may be nil) with the given TTL.
func NewPageCache(rdb *redis.Client, ttl time.Duration) *PageCache {
	return &PageCache{
		rdb:   rdb,
		ttl:   ttl,
		now:   time.Now,
		local: make(map[string]pageEntry),
	}
}

// TTL is the lifetime of a stored page.
func (p *PageCache) TTL() time.Duration { return p.ttl }

// PageKey identifies one rendering of page for a viewer (0 = anonymous) and
// request URL including the query string.
func PageKey(page string, viewerID uint, url string) string {
	return fmt.Sprintf("%s%s:%d:%s", PageKeyPrefix, page, viewerID, url)
}

// Get returns the stored page body, reporting a hit.
func (p *PageCache) Get(ctx context.Context, page, key string) ([]byte, bool) {
	body, ok := p.get(ctx, key)
	result := "miss"
	if ok {
		result = "hit"
	}
	middleware.PageCacheRequests.WithLabelValues(page, result).Inc()
	return body, ok
}

func (p *PageCache) get(ctx context.Context, key string) ([]byte, bool) {
	if p.rdb != nil {
		body, err := p.rdb.Get(ctx, key).Bytes()
		if err == nil {
			return body, true
		}
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "page cache read failed", slog.String("error", err.Error()))
		}
		return nil, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.local[key]
	if !ok {
		return nil, false
	}
	if !p.now().Before(e.expires) {
		delete(p.local, key)
		return nil, false
	}
	return e.body, true
}

// Set stores body under key for the cache TTL.
func (p *PageCache) Set(ctx context.Context, key string, body []byte) {
	if p.ttl <= 0 {
		return
	}
	stored := make([]byte, len(body))
	copy(stored, body)

	if p.rdb != nil {
		if err := p.rdb.Set(ctx, key, stored, p.ttl).Err(); err != nil {
			middleware.Logger.WarnContext(ctx, "page cache write failed", slog.String("error", err.Error()))
		}
		return
	}

	p.mu.Lock()
	p.local[key] = pageEntry{body: stored, expires: p.now().Add(p.ttl)}
	p.mu.Unlock()
}

// Clear drops every stored page.
func (p *PageCache) Clear(ctx context.Context) error {
	if p.rdb == nil {
		p.mu.Lock()
		p.local = make(map[string]pageEntry)
		p.mu.Unlock()
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := p.rdb.Scan(ctx, cursor, PageKeyPrefix+"*", 200).Result()
		if err != nil {
			return fmt.Errorf("scan page cache: %w", err)
		}
		if len(keys) > 0 {
			if err := p.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("clear page cache: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
