// Package collision indexes terrain colliders and clinch spheres for ray and
// sphere queries.
package collision

import (
	"math"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"cragsman/internal/geom"
	"cragsman/internal/terrain"
)

// Layer is a bit mask that lets queries filter entry kinds.
type Layer uint8

const (
	LayerTerrain Layer = 1 << iota
	LayerClinch

	LayerAll = LayerTerrain | LayerClinch
)

// Shape is either a triangle collider or a sphere around the entry origin.
type Shape struct {
	Collider *terrain.Collider
	Radius   float64
}

// ColliderShape wraps a triangle collider.
func ColliderShape(c *terrain.Collider) Shape { return Shape{Collider: c} }

// SphereShape describes a sphere of radius r.
func SphereShape(r float64) Shape { return Shape{Radius: r} }

type entry struct {
	id          uint64
	shape       Shape
	translation mgl64.Vec3
	layer       Layer
	bounds      geom.AABB
}

func (e *entry) triangle(i int) geom.Triangle {
	return e.shape.Collider.Triangles[i].Translate(e.translation)
}

func (e *entry) sphere() geom.Sphere {
	return geom.Sphere{Center: e.translation, Radius: e.shape.Radius}
}

// Contact is one overlap found by QuerySphere.
type Contact struct {
	ID       uint64
	Layer    Layer
	Triangle geom.Triangle // zero for sphere entries
	Point    mgl64.Vec3    // closest point on the shape
	Normal   mgl64.Vec3
	Distance float64 // from the query center to Point
}

// Hit is the nearest intersection found by QueryRay.
type Hit struct {
	ID       uint64
	Layer    Layer
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64
}

// Structure maps ids to shapes. Mutations are staged and only become visible
// to queries after Rebuild, so a burst of changes costs one re-index.
type Structure struct {
	mu       sync.RWMutex
	cellSize float64
	pending  map[uint64]*entry
	dirty    bool
	index    *gridIndex
}

// NewStructure returns an empty structure using cellSize for its xy grid.
func NewStructure(cellSize float64) *Structure {
	if cellSize <= 0 || math.IsNaN(cellSize) {
		cellSize = 30
	}
	return &Structure{
		cellSize: cellSize,
		pending:  make(map[uint64]*entry),
		index:    newGridIndex(cellSize, nil),
	}
}

// Update inserts or replaces the entry for id.
func (s *Structure) Update(id uint64, shape Shape, translation mgl64.Vec3, layer Layer) {
	e := &entry{id: id, shape: shape, translation: translation, layer: layer}
	if shape.Collider != nil {
		e.bounds = shape.Collider.Bounds.Translate(translation)
	} else {
		e.bounds = e.sphere().Bounds()
	}
	s.mu.Lock()
	s.pending[id] = e
	s.dirty = true
	s.mu.Unlock()
}

// Remove drops id. Removing an unknown id is a no-op.
func (s *Structure) Remove(id uint64) {
	s.mu.Lock()
	if _, ok := s.pending[id]; ok {
		delete(s.pending, id)
		s.dirty = true
	}
	s.mu.Unlock()
}

// Dirty reports whether changes are waiting for Rebuild.
func (s *Structure) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Len returns the number of staged entries.
func (s *Structure) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// Rebuild re-indexes all entries.
func (s *Structure) Rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]*entry, 0, len(s.pending))
	for _, e := range s.pending {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
	s.index = newGridIndex(s.cellSize, entries)
	s.dirty = false
}

// RebuildIfDirty rebuilds only when changes are pending and reports whether
// it did.
func (s *Structure) RebuildIfDirty() bool {
	if !s.Dirty() {
		return false
	}
	s.Rebuild()
	return true
}

// QuerySphere returns every shape overlapping the sphere, sorted by distance.
func (s *Structure) QuerySphere(center mgl64.Vec3, radius float64, mask Layer) []Contact {
	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()

	query := geom.Sphere{Center: center, Radius: radius}
	var contacts []Contact
	idx.visitBox(query.Bounds(), mask, func(e *entry, tri int) {
		if tri < 0 {
			sp := e.sphere()
			d := center.Sub(sp.Center)
			dist := d.Len()
			if dist > radius+sp.Radius {
				return
			}
			n := geom.SafeNormalize(d)
			contacts = append(contacts, Contact{
				ID:       e.id,
				Layer:    e.layer,
				Point:    sp.Center.Add(n.Mul(sp.Radius)),
				Normal:   n,
				Distance: math.Max(dist-sp.Radius, 0),
			})
			return
		}
		t := e.triangle(tri)
		p := t.ClosestPoint(center)
		dist := p.Sub(center).Len()
		if dist > radius {
			return
		}
		contacts = append(contacts, Contact{
			ID:       e.id,
			Layer:    e.layer,
			Triangle: t,
			Point:    p,
			Normal:   t.Normal(),
			Distance: dist,
		})
	})
	sort.SliceStable(contacts, func(i, j int) bool { return contacts[i].Distance < contacts[j].Distance })
	return contacts
}

// QueryRay returns the nearest intersection along line.
func (s *Structure) QueryRay(line geom.Line, mask Layer) (Hit, bool) {
	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()

	best := Hit{Distance: math.Inf(1)}
	found := false
	idx.visitLine(line, mask, func(e *entry, tri int) {
		if tri < 0 {
			d, ok := line.IntersectSphere(e.sphere())
			if !ok || d >= best.Distance {
				return
			}
			p := line.At(d)
			best = Hit{ID: e.id, Layer: e.layer, Point: p, Normal: geom.SafeNormalize(p.Sub(e.translation)), Distance: d}
			found = true
			return
		}
		t := e.triangle(tri)
		d, ok := line.IntersectTriangle(t)
		if !ok || d >= best.Distance {
			return
		}
		best = Hit{ID: e.id, Layer: e.layer, Point: line.At(d), Normal: t.Normal(), Distance: d}
		found = true
	})
	return best, found
}
