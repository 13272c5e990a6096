package terrain

import (
	"github.com/go-gl/mathgl/mgl64"

	"cragsman/internal/geom"
)

// Mesh is a regular grid of vertices in tile-local space sharing one index
// buffer.
type Mesh struct {
	Resolution int
	Positions  []mgl64.Vec3
	Normals    []mgl64.Vec3
	UVs        []mgl64.Vec2
	Indices    []uint32
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Positions) }

// Triangle returns triangle i with every vertex moved by offset.
func (m *Mesh) Triangle(i int, offset mgl64.Vec3) geom.Triangle {
	return geom.Triangle{
		m.Positions[m.Indices[3*i]].Add(offset),
		m.Positions[m.Indices[3*i+1]].Add(offset),
		m.Positions[m.Indices[3*i+2]].Add(offset),
	}
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Collider is a set of world-space triangles with their bounds.
type Collider struct {
	Triangles []geom.Triangle
	Bounds    geom.AABB
}

// NewCollider computes bounds for tris.
func NewCollider(tris []geom.Triangle) *Collider {
	b := geom.EmptyAABB()
	for _, t := range tris {
		b = b.Union(t.Bounds())
	}
	return &Collider{Triangles: tris, Bounds: b}
}

// gridIndices builds two triangles per quad of an r*r vertex grid, counter
// clockwise seen from +z.
func gridIndices(r int) []uint32 {
	indices := make([]uint32, 0, (r-1)*(r-1)*6)
	for y := 1; y < r; y++ {
		for x := 1; x < r; x++ {
			a := uint32(y*r + x)
			b := a - uint32(r)
			c := b - 1
			d := a - 1
			indices = append(indices, d, c, b, d, b, a)
		}
	}
	return indices
}
