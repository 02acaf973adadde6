package engine

import (
	"context"

	"github.com/weinshel/hallucinator/internal/querycache"
)

// CacheStats reports the query cache's current layer-1/layer-2 counters,
// for the admin HTTP surface's /cache/stats.
func (e *Engine) CacheStats() querycache.Stats {
	return e.cache.Stats()
}

// ClearCache empties both cache layers entirely.
func (e *Engine) ClearCache(ctx context.Context) error {
	return e.cache.Clear(ctx)
}

// ClearNegativeCache removes only negative (no-match) entries, leaving
// confirmed positive matches in place.
func (e *Engine) ClearNegativeCache(ctx context.Context) error {
	return e.cache.ClearNegatives(ctx)
}

// BackendNames reports the name of every assembled backend, local and
// remote, for the admin surface's /healthz.
func (e *Engine) BackendNames() []string {
	names := make([]string, 0, len(e.localBackends)+len(e.remoteBackends)+1)
	for _, b := range e.localBackends {
		names = append(names, b.Name())
	}
	if e.doiResolver != nil {
		names = append(names, e.doiResolver.Name())
	}
	for _, b := range e.remoteBackends {
		names = append(names, b.Name())
	}
	return names
}
