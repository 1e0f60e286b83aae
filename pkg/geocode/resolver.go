package geocode

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/school-tracker/internal/model"
)

// Result holds the outcome of a resolution.
type Result struct {
	Address  string
	Coord    model.Coord
	Matched  bool
	CacheHit bool
}

// Resolver answers queries from the cache file and falls back to a
// Searcher on a miss. It owns the cache: the file is loaded on the first
// Resolve and written back by Close. Failed lookups are never cached.
type Resolver struct {
	searcher  Searcher
	cachePath string
	cacheOnly bool

	cache  *Cache
	closed bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCacheOnly forbids network lookups; misses resolve as unmatched.
func WithCacheOnly(cacheOnly bool) ResolverOption {
	return func(r *Resolver) {
		r.cacheOnly = cacheOnly
	}
}

// NewResolver creates a Resolver backed by the cache file at cachePath.
// searcher may be nil in cache-only mode.
func NewResolver(searcher Searcher, cachePath string, opts ...ResolverOption) *Resolver {
	r := &Resolver{searcher: searcher, cachePath: cachePath}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the loaded cache, loading it if needed.
func (r *Resolver) Cache() (*Cache, error) {
	if r.cache == nil {
		c, err := LoadCache(r.cachePath)
		if err != nil {
			return nil, err
		}
		zap.L().Debug("geocode: cache loaded", zap.String("path", r.cachePath), zap.Int("entries", c.Len()))
		r.cache = c
	}
	return r.cache, nil
}

// Resolve looks up q. Lookup failures are logged and reported as an
// unmatched Result; the returned error is reserved for an unreadable cache.
func (r *Resolver) Resolve(ctx context.Context, q Query) (*Result, error) {
	cache, err := r.Cache()
	if err != nil {
		return nil, err
	}

	key := NormalizeQuery(q.Text)
	log := zap.L().With(zap.String("query", key))

	if e, ok := cache.Get(key); ok {
		log.Debug("geocode: cache hit")
		return &Result{Address: e.Address, Coord: e.Coord, Matched: true, CacheHit: true}, nil
	}
	log.Debug("geocode: cache miss")

	if r.cacheOnly || r.searcher == nil {
		log.Warn("geocode: not in cache and lookups are disabled")
		return &Result{Matched: false}, nil
	}

	q.Text = key
	res, err := r.searcher.Search(ctx, q)
	if err != nil {
		var se *StatusError
		switch {
		case errors.As(err, &se):
			log.Warn("geocode: query failed", zap.Int("status", se.Code), zap.String("message", se.Message))
		case errors.Is(err, ErrNotFound):
			log.Warn("geocode: no results")
		default:
			log.Warn("geocode: query failed", zap.Error(err))
		}
		return &Result{Matched: false}, nil
	}

	res.Address = NormalizeQuery(res.Address)
	if res.Address == "" {
		log.Warn("geocode: result has no address")
		return &Result{Matched: false}, nil
	}
	cache.Put(key, Entry{Address: res.Address, Coord: res.Coord})
	return res, nil
}

// Close flushes the cache if it was loaded. It is safe to call more than once;
// only the first call writes.
func (r *Resolver) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.cache == nil {
		return nil
	}
	if err := r.cache.Flush(); err != nil {
		return err
	}
	zap.L().Debug("geocode: cache flushed", zap.String("path", r.cachePath), zap.Int("entries", r.cache.Len()))
	return nil
}
