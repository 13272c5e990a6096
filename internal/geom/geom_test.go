package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

var unitTriangle = Triangle{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

func TestClosestPointRegions(t *testing.T) {
	tests := []struct {
		name string
		p    mgl64.Vec3
		want mgl64.Vec3
	}{
		{name: "above face", p: mgl64.Vec3{0.25, 0.25, 3}, want: mgl64.Vec3{0.25, 0.25, 0}},
		{name: "vertex a", p: mgl64.Vec3{-1, -1, 0}, want: mgl64.Vec3{0, 0, 0}},
		{name: "vertex b", p: mgl64.Vec3{2, -0.5, 1}, want: mgl64.Vec3{1, 0, 0}},
		{name: "edge ab", p: mgl64.Vec3{0.5, -2, 0}, want: mgl64.Vec3{0.5, 0, 0}},
		{name: "edge bc", p: mgl64.Vec3{1, 1, 0}, want: mgl64.Vec3{0.5, 0.5, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := unitTriangle.ClosestPoint(tt.p)
			if !got.ApproxEqualThreshold(tt.want, 1e-9) {
				t.Fatalf("closest point of %v: got %v want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestNormalIsUnitAndOriented(t *testing.T) {
	n := unitTriangle.Normal()
	if !n.ApproxEqual(mgl64.Vec3{0, 0, 1}) {
		t.Fatalf("unexpected normal %v", n)
	}
	degenerate := Triangle{{0, 0, 0}, {1, 1, 1}, {2, 2, 2}}
	if n := degenerate.Normal(); n != (mgl64.Vec3{}) {
		t.Fatalf("degenerate triangle should have zero normal, got %v", n)
	}
}

func TestLineIntersectTriangle(t *testing.T) {
	down := Segment(mgl64.Vec3{0.2, 0.2, 5}, mgl64.Vec3{0.2, 0.2, -5})
	d, ok := down.IntersectTriangle(unitTriangle)
	if !ok || math.Abs(d-5) > 1e-9 {
		t.Fatalf("expected hit at 5, got %v %v", d, ok)
	}

	short := Segment(mgl64.Vec3{0.2, 0.2, 5}, mgl64.Vec3{0.2, 0.2, 1})
	if _, ok := short.IntersectTriangle(unitTriangle); ok {
		t.Fatalf("segment ending above the triangle should miss")
	}

	outside := Ray(mgl64.Vec3{2, 2, 5}, mgl64.Vec3{0, 0, -1})
	if _, ok := outside.IntersectTriangle(unitTriangle); ok {
		t.Fatalf("ray outside triangle should miss")
	}
}

func TestLineIntersectSphereAndPlane(t *testing.T) {
	ray := Ray(mgl64.Vec3{0, 0, 10}, mgl64.Vec3{0, 0, -1})
	d, ok := ray.IntersectSphere(Sphere{Center: mgl64.Vec3{}, Radius: 2})
	if !ok || math.Abs(d-8) > 1e-9 {
		t.Fatalf("expected sphere hit at 8, got %v %v", d, ok)
	}
	p, ok := ray.IntersectPlaneZ(3)
	if !ok || !p.ApproxEqual(mgl64.Vec3{0, 0, 3}) {
		t.Fatalf("expected plane hit at z=3, got %v %v", p, ok)
	}
	flat := Ray(mgl64.Vec3{0, 0, 10}, mgl64.Vec3{1, 0, 0})
	if _, ok := flat.IntersectPlaneZ(0); ok {
		t.Fatalf("parallel ray should not hit plane")
	}
}

func TestAABBOperations(t *testing.T) {
	b := EmptyAABB()
	if !b.Empty() {
		t.Fatalf("expected empty box")
	}
	b = unitTriangle.Bounds()
	if b.Empty() || b.Max != (mgl64.Vec3{1, 1, 0}) {
		t.Fatalf("unexpected bounds %+v", b)
	}
	s := Sphere{Center: mgl64.Vec3{0.5, 0.5, 0.5}, Radius: 0.6}
	if !b.Overlaps(s.Bounds()) {
		t.Fatalf("expected overlap")
	}
	if b.Translate(mgl64.Vec3{10, 0, 0}).Overlaps(s.Bounds()) {
		t.Fatalf("translated box should not overlap")
	}
}
