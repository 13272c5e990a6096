// Package cache keeps synthesized tile payloads so that tiles re-entering
// the load radius skip synthesis.
package cache

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"cragsman/internal/config"
	"cragsman/internal/terrain"
	"cragsman/internal/world"
)

// Payloads is a cost-bounded payload cache keyed by tile position.
type Payloads struct {
	cache *ristretto.Cache[uint64, *terrain.Payload]
}

// New builds the cache, or returns nil when caching is disabled.
func New(cfg config.CacheConfig) (*Payloads, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	c, err := ristretto.NewCache(&ristretto.Config[uint64, *terrain.Payload]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("payload cache: %w", err)
	}
	return &Payloads{cache: c}, nil
}

func (p *Payloads) Get(pos world.TilePos) (*terrain.Payload, bool) {
	return p.cache.Get(pos.Key())
}

// Set stores payload with its memory size as cost. Admission is
// probabilistic, a dropped Set only costs a later re-synthesis.
func (p *Payloads) Set(pos world.TilePos, payload *terrain.Payload) {
	p.cache.Set(pos.Key(), payload, payload.Size())
}

// Wait blocks until buffered writes are applied.
func (p *Payloads) Wait() {
	p.cache.Wait()
}

func (p *Payloads) Close() {
	p.cache.Close()
}
