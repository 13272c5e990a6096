package cache

import (
	"testing"

	"cragsman/internal/config"
	"cragsman/internal/terrain"
	"cragsman/internal/world"
)

func TestPayloadsRoundTrip(t *testing.T) {
	cfg := config.Default().Cache
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer p.Close()

	payload := &terrain.Payload{X: 3, Y: -2, Albedo: terrain.NewImage(4, 4, 3)}
	pos := world.TilePos{X: 3, Y: -2}
	p.Set(pos, payload)
	p.Wait()

	got, ok := p.Get(pos)
	if !ok || got != payload {
		t.Fatalf("expected cached payload, got %v %v", got, ok)
	}
	if _, ok := p.Get(world.TilePos{X: -2, Y: 3}); ok {
		t.Fatalf("unexpected hit for a different tile")
	}
}

func TestDisabledCacheIsNil(t *testing.T) {
	cfg := config.Default().Cache
	cfg.Enabled = false
	p, err := New(cfg)
	if err != nil || p != nil {
		t.Fatalf("disabled cache should be nil, got %v %v", p, err)
	}
}
