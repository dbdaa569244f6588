package provider

import (
	"context"
	"encoding/json"
	"log/slog"

	"screener/internal/cache"
)

var _ Fetcher = (*CachedFetcher)(nil)

// CachedFetcher wraps a Fetcher with the local TTL cache so a symbol fetched
// within the cache window costs no upstream calls.
type CachedFetcher struct {
	inner Fetcher
	cache *cache.Cache
	log   *slog.Logger
}

// NewCachedFetcher wraps inner with c.
func NewCachedFetcher(inner Fetcher, c *cache.Cache) *CachedFetcher {
	return &CachedFetcher{
		inner: inner,
		cache: c,
		log:   slog.Default().With("component", "fetch-cache"),
	}
}

// Name implements Fetcher.
func (f *CachedFetcher) Name() string { return f.inner.Name() }

// Fetch implements Fetcher. Cache failures never fail the fetch; the cache
// is an optimization, not a source of truth.
func (f *CachedFetcher) Fetch(ctx context.Context, symbol string) (*Bundle, error) {
	if data := f.cache.Get(symbol); data != nil {
		var b Bundle
		if err := json.Unmarshal(data, &b); err == nil {
			return &b, nil
		}
		// Corrupt entry: fall through and refresh it.
	}

	b, err := f.inner.Fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(b)
	if err != nil {
		return b, nil
	}
	if err := f.cache.Set(symbol, data); err != nil {
		f.log.Warn("caching bundle failed", "symbol", symbol, "error", err)
	}
	return b, nil
}
