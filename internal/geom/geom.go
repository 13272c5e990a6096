// Package geom implements the small set of geometric primitives used by the
// collision structure and the physics solver.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const epsilon = 1e-9

// Triangle is a counter-clockwise triangle in world space.
type Triangle [3]mgl64.Vec3

// Normal returns the unit normal, or the zero vector for degenerate triangles.
func (t Triangle) Normal() mgl64.Vec3 {
	n := t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
	return SafeNormalize(n)
}

// Translate returns the triangle moved by offset.
func (t Triangle) Translate(offset mgl64.Vec3) Triangle {
	return Triangle{t[0].Add(offset), t[1].Add(offset), t[2].Add(offset)}
}

// Bounds returns the axis aligned box enclosing the triangle.
func (t Triangle) Bounds() AABB {
	b := EmptyAABB()
	for _, v := range t {
		b = b.Extend(v)
	}
	return b
}

// ClosestPoint returns the point on the triangle nearest to p using the
// region classification from Ericson, Real-Time Collision Detection 5.1.5.
func (t Triangle) ClosestPoint(p mgl64.Vec3) mgl64.Vec3 {
	a, b, c := t[0], t[1], t[2]
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}

// Line is a segment from Origin to Origin+Direction*MaxT. A MaxT of +Inf makes
// it a ray.
type Line struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3 // unit length
	MaxT      float64
}

// Segment builds a line between two points.
func Segment(a, b mgl64.Vec3) Line {
	d := b.Sub(a)
	l := d.Len()
	if l < epsilon {
		return Line{Origin: a, Direction: mgl64.Vec3{0, 0, -1}, MaxT: 0}
	}
	return Line{Origin: a, Direction: d.Mul(1 / l), MaxT: l}
}

// Ray builds an unbounded line.
func Ray(origin, direction mgl64.Vec3) Line {
	return Line{Origin: origin, Direction: SafeNormalize(direction), MaxT: math.Inf(1)}
}

// At returns the point at parameter t.
func (l Line) At(t float64) mgl64.Vec3 {
	return l.Origin.Add(l.Direction.Mul(t))
}

// Bounded reports whether the line has a finite extent.
func (l Line) Bounded() bool {
	return !math.IsInf(l.MaxT, 0) && !math.IsNaN(l.MaxT)
}

// IntersectTriangle returns the parameter of the hit along the line using the
// Moller-Trumbore test. Both faces count as hits.
func (l Line) IntersectTriangle(t Triangle) (float64, bool) {
	e1 := t[1].Sub(t[0])
	e2 := t[2].Sub(t[0])
	pv := l.Direction.Cross(e2)
	det := e1.Dot(pv)
	if math.Abs(det) < epsilon {
		return 0, false
	}
	inv := 1 / det
	tv := l.Origin.Sub(t[0])
	u := tv.Dot(pv) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	qv := tv.Cross(e1)
	v := l.Direction.Dot(qv) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	d := e2.Dot(qv) * inv
	if d < 0 || d > l.MaxT {
		return 0, false
	}
	return d, true
}

// IntersectSphere returns the first parameter at which the line enters the
// sphere, or zero when the origin is already inside.
func (l Line) IntersectSphere(s Sphere) (float64, bool) {
	m := l.Origin.Sub(s.Center)
	b := m.Dot(l.Direction)
	c := m.Dot(m) - s.Radius*s.Radius
	if c > 0 && b > 0 {
		return 0, false
	}
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if t < 0 {
		t = 0
	}
	if t > l.MaxT {
		return 0, false
	}
	return t, true
}

// IntersectPlaneZ returns the point where the line crosses the plane z=h.
func (l Line) IntersectPlaneZ(h float64) (mgl64.Vec3, bool) {
	dz := l.Direction.Z()
	if math.Abs(dz) < epsilon {
		return mgl64.Vec3{}, false
	}
	t := (h - l.Origin.Z()) / dz
	if t < 0 || t > l.MaxT {
		return mgl64.Vec3{}, false
	}
	return l.At(t), true
}

// Sphere is a center and radius.
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

// Bounds returns the enclosing box.
func (s Sphere) Bounds() AABB {
	r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
	return AABB{Min: s.Center.Sub(r), Max: s.Center.Add(r)}
}

// AABB is an axis aligned bounding box. An empty box has Min > Max.
type AABB struct {
	Min, Max mgl64.Vec3
}

// EmptyAABB returns a box that any Extend call replaces.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{Min: mgl64.Vec3{inf, inf, inf}, Max: mgl64.Vec3{-inf, -inf, -inf}}
}

// Empty reports whether the box encloses nothing.
func (b AABB) Empty() bool {
	return b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() || b.Min.Z() > b.Max.Z()
}

// Extend grows the box to include p.
func (b AABB) Extend(p mgl64.Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
	return b
}

// Union returns the box enclosing both.
func (b AABB) Union(o AABB) AABB {
	if o.Empty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Translate moves the box by offset.
func (b AABB) Translate(offset mgl64.Vec3) AABB {
	if b.Empty() {
		return b
	}
	return AABB{Min: b.Min.Add(offset), Max: b.Max.Add(offset)}
}

// Overlaps reports whether two boxes intersect.
func (b AABB) Overlaps(o AABB) bool {
	for i := 0; i < 3; i++ {
		if b.Max[i] < o.Min[i] || o.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

// SafeNormalize returns v/|v|, or the zero vector when v is degenerate.
func SafeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < epsilon || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// Finite reports whether every component is a finite number.
func Finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
