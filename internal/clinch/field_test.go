package clinch

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-gl/mathgl/mgl64"

	"cragsman/internal/collision"
	"cragsman/internal/config"
	"cragsman/internal/core"
	"cragsman/internal/geom"
	"cragsman/internal/logging"
	"cragsman/internal/physics"
	"cragsman/internal/world"
)

type slope struct{}

func (slope) HeightAt(p mgl64.Vec2) float64 { return -0.2 * p[1] }

func newField(seed int64) (*Field, *physics.World, *collision.Structure) {
	bodies := physics.NewWorld()
	structure := collision.NewStructure(32)
	f := NewField(config.Default().Clinches, seed, slope{}, bodies, structure, logging.Discard())
	return f, bodies, structure
}

func TestCount(t *testing.T) {
	cases := []struct {
		y    int
		want int
	}{
		{-5, 6},
		{0, 6},
		{2, 6},
		{22, 5},
		{102, 2},
		{1000, 1},
	}
	for _, tc := range cases {
		if got := Count(tc.y); got != tc.want {
			t.Fatalf("Count(%d) = %d, want %d", tc.y, got, tc.want)
		}
	}
}

func TestPositionsAreDeterministic(t *testing.T) {
	a, _, _ := newField(42)
	b, _, _ := newField(42)
	c, _, _ := newField(43)
	pos := world.TilePos{X: 3, Y: -2}

	pa, pb, pc := a.Positions(pos), b.Positions(pos), c.Positions(pos)
	if len(pa) != Count(pos.Y) {
		t.Fatalf("expected %d clinches, got %d", Count(pos.Y), len(pa))
	}
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("same seed produced different clinches:\n%s", spew.Sdump(pa, pb))
		}
	}
	if pa[0] == pc[0] {
		t.Fatalf("different seeds produced the same first clinch %v", pa[0])
	}
	if other := a.Positions(world.TilePos{X: 4, Y: -2}); other[0] == pa[0] {
		t.Fatalf("neighbouring tiles share clinch positions")
	}

	L := config.Default().Clinches.TileLength
	for _, p := range pa {
		if p[0] < 2.5*L || p[0] > 3.5*L || p[1] < -2.5*L || p[1] > -1.5*L {
			t.Fatalf("clinch %v outside its tile", p)
		}
		if want := -0.2*p[1] + 1; p[2] != want {
			t.Fatalf("clinch z %v, want %v", p[2], want)
		}
	}
}

func TestFieldStreamsAroundPlayer(t *testing.T) {
	f, bodies, structure := newField(1)
	ctx := core.WorldContext{Log: logging.Discard()}

	if !f.Update(ctx) {
		t.Fatalf("first update should populate tiles")
	}
	if f.Tiles() == 0 || f.Len() == 0 {
		t.Fatalf("no clinches loaded")
	}
	if bodies.BodyCount() != f.Len() || structure.Len() != f.Len() {
		t.Fatalf("bodies %d structure %d clinches %d", bodies.BodyCount(), structure.Len(), f.Len())
	}
	if f.Update(ctx) {
		t.Fatalf("a second update at the same spot should be a no-op")
	}

	ctx.PlayerPosition = mgl64.Vec3{0, 5000, 0}
	f.Update(ctx)
	for _, id := range bodies.Bodies() {
		if _, ok := f.ByBody(id); !ok {
			continue
		}
		b, _ := bodies.Body(id)
		if b.Position[1] < 4000 {
			t.Fatalf("clinch %v should have been dropped", b.Position)
		}
	}
	if bodies.PendingRemovals() == 0 {
		t.Fatalf("dropped clinches should queue body removals")
	}
}

func TestNearestAndIntersect(t *testing.T) {
	f, _, _ := newField(7)
	f.Update(core.WorldContext{Log: logging.Discard()})

	initial, ok := f.Initial(3)
	if !ok || len(initial) != 3 {
		t.Fatalf("expected three initial clinches")
	}
	if initial[0].Position.Len() > initial[1].Position.Len() || initial[1].Position.Len() > initial[2].Position.Len() {
		t.Fatalf("initial clinches not sorted by distance to origin")
	}
	if _, ok := f.Initial(f.Len() + 1); ok {
		t.Fatalf("asking for more clinches than loaded should fail")
	}

	target := initial[0]
	probe := target.Position.Add(mgl64.Vec3{1, 1, 0})
	got, ok := f.Nearest(probe, 3)
	if !ok || got != target {
		t.Fatalf("expected nearest clinch %v, got %v", target.Position, got)
	}
	if _, ok := f.Nearest(target.Position.Add(mgl64.Vec3{0, 0, 50}), 3); ok {
		t.Fatalf("no clinch should be within reach far above the wall")
	}

	line := geom.Segment(target.Position.Add(mgl64.Vec3{0, 0, 20}), target.Position.Sub(mgl64.Vec3{0, 0, 20}))
	hit, dist, ok := f.Intersect(line)
	if !ok || hit != target {
		t.Fatalf("ray through the clinch missed it")
	}
	if dist <= 0 {
		t.Fatalf("unexpected hit distance %v", dist)
	}
}
