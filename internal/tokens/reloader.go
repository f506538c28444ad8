package tokens

import (
	"context"
	"time"

	"github.com/sridharan011/matrimony-pdf-generator/internal/infra/logging"
)

// Source yields the current key set.
type Source interface {
	LoadTokens(ctx context.Context) (map[string]int, error)
}

// Reloader periodically refreshes a Cache from a Source. A failed load
// leaves the cache untouched.
type Reloader struct {
	src      Source
	cache    *Cache
	interval time.Duration
}

func NewReloader(src Source, cache *Cache, interval time.Duration) *Reloader {
	return &Reloader{src: src, cache: cache, interval: interval}
}

// LoadOnce performs a single refresh.
func (r *Reloader) LoadOnce(ctx context.Context) error {
	m, err := r.src.LoadTokens(ctx)
	if err != nil {
		return err
	}
	r.cache.Replace(m)
	return nil
}

// Start refreshes every interval until ctx is done.
func (r *Reloader) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.LoadOnce(ctx); err != nil {
					logging.Warn("API key reload failed, keeping previous set", "error", err)
					continue
				}
				logging.Debug("API keys reloaded", "count", r.cache.Len())
			}
		}
	}()
}
