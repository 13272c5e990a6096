package game

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"cragsman/internal/avatar"
	"cragsman/internal/config"
	"cragsman/internal/core"
	"cragsman/internal/logging"
	"cragsman/internal/physics"
	"cragsman/internal/terrain"
)

type tiltedWall struct{}

func (tiltedWall) HeightAt(p mgl64.Vec2) float64 { return 0.1 * p[0] }

func (tiltedWall) MaterialAt(mgl64.Vec2, bool) terrain.Material {
	return terrain.Material{Color: mgl64.Vec3{0.5, 0.4, 0.3}, Roughness: 0.8}
}

func TestBoulderSpawn(t *testing.T) {
	bodies := physics.NewWorld()
	cfg := config.Default().Boulders
	b := NewBoulders(cfg, bodies, tiltedWall{}, 9, logging.Discard())
	player := mgl64.Vec3{10, 20, 0}

	for i := 0; i < 50; i++ {
		boulder, err := b.Spawn(player)
		if err != nil {
			t.Fatalf("spawn: %v", err)
		}
		body, ok := bodies.Body(boulder.Body)
		if !ok {
			t.Fatalf("boulder body missing")
		}
		r := boulder.Radius
		if r < 1.5 || r >= 2.5 || body.CollisionRadius != r {
			t.Fatalf("radius %v out of range", r)
		}
		p := body.Position
		if p[1] != player[1]+300 || p[0] < player[0]-200 || p[0] > player[0]+200 {
			t.Fatalf("boulder spawned at %v", p)
		}
		if math.Abs(p[2]-(0.1*p[0]+r)) > 1e-9 {
			t.Fatalf("boulder z %v not resting on the wall", p[2])
		}
		if want := avatar.SphereVolume(r) * 0.5; math.Abs(body.Mass-want) > 1e-9 {
			t.Fatalf("mass %v, want %v", body.Mass, want)
		}
		if body.TTL != cfg.TTLTicks {
			t.Fatalf("ttl %d, want %d", body.TTL, cfg.TTLTicks)
		}
		if math.Abs(body.Orientation.Len()-1) > 1e-9 {
			t.Fatalf("orientation not normalized: %v", body.Orientation)
		}
		if boulder.Color != (mgl64.Vec3{0.5, 0.4, 0.3}) {
			t.Fatalf("boulder not tinted by the wall material")
		}
	}
	if b.Live() != 50 {
		t.Fatalf("expected 50 live boulders, got %d", b.Live())
	}
}

func TestBouldersExpire(t *testing.T) {
	bodies := physics.NewWorld()
	cfg := config.Default()
	cfg.Boulders.SpawnChance = 1
	cfg.Boulders.TTLTicks = 5
	b := NewBoulders(cfg.Boulders, bodies, tiltedWall{}, 1, logging.Discard())
	sim := physics.NewSimulation(bodies, cfg.Physics, time.Second/30, nil, nil, 1, logging.Discard())
	sim.OnRemove(b.Forget)

	ctx := core.WorldContext{Log: logging.Discard()}
	b.Update(ctx)
	if b.Live() != 1 {
		t.Fatalf("expected one boulder after a certain spawn, got %d", b.Live())
	}
	b.cfg.Enabled = false

	var first physics.BodyID
	for id := range b.live {
		first = id
	}

	for i := 0; i < 5; i++ {
		sim.Update(ctx)
		b.Update(ctx)
	}
	if _, ok := bodies.Body(first); ok {
		t.Fatalf("boulder should have expired")
	}
	if b.Live() != 0 {
		t.Fatalf("expired boulders must be forgotten, %d left", b.Live())
	}
}

func TestBoulderSpinFollowsSpeed(t *testing.T) {
	bodies := physics.NewWorld()
	cfg := config.Default().Boulders
	cfg.Enabled = false
	b := NewBoulders(cfg, bodies, tiltedWall{}, 3, logging.Discard())
	boulder, _ := b.Spawn(mgl64.Vec3{})
	body, _ := bodies.Body(boulder.Body)
	body.Orientation = mgl64.QuatIdent()
	body.Velocity = mgl64.Vec3{0, -90, 0}

	b.Update(core.WorldContext{Log: logging.Discard()})
	want := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{1, 0, 0})
	if !body.Orientation.ApproxEqualThreshold(want, 1e-9) {
		t.Fatalf("orientation %v, want %v", body.Orientation, want)
	}
}
