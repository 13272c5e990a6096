package collision

import (
	"math"

	"cragsman/internal/geom"
)

// maxVisitCells bounds how many grid cells a query walks before it falls
// back to scanning every entry.
const maxVisitCells = 4096

type cellKey struct{ x, y int }

type ref struct {
	e   *entry
	tri int // -1 for sphere entries
}

// gridIndex is an immutable uniform xy grid over a snapshot of entries.
type gridIndex struct {
	cellSize float64
	entries  []*entry
	cells    map[cellKey][]ref
}

func newGridIndex(cellSize float64, entries []*entry) *gridIndex {
	g := &gridIndex{cellSize: cellSize, entries: entries, cells: make(map[cellKey][]ref)}
	for _, e := range entries {
		if e.shape.Collider == nil {
			g.insert(e.bounds, ref{e: e, tri: -1})
			continue
		}
		for i := range e.shape.Collider.Triangles {
			g.insert(e.triangle(i).Bounds(), ref{e: e, tri: i})
		}
	}
	return g
}

func (g *gridIndex) cellRange(b geom.AABB) (cellKey, cellKey, bool) {
	if b.Empty() {
		return cellKey{}, cellKey{}, false
	}
	for _, v := range []float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return cellKey{}, cellKey{}, false
		}
	}
	lo := cellKey{int(math.Floor(b.Min.X() / g.cellSize)), int(math.Floor(b.Min.Y() / g.cellSize))}
	hi := cellKey{int(math.Floor(b.Max.X() / g.cellSize)), int(math.Floor(b.Max.Y() / g.cellSize))}
	return lo, hi, true
}

func (g *gridIndex) insert(b geom.AABB, r ref) {
	lo, hi, ok := g.cellRange(b)
	if !ok {
		return
	}
	for y := lo.y; y <= hi.y; y++ {
		for x := lo.x; x <= hi.x; x++ {
			k := cellKey{x, y}
			g.cells[k] = append(g.cells[k], r)
		}
	}
}

// visitBox calls fn once for every candidate whose cell overlaps b.
func (g *gridIndex) visitBox(b geom.AABB, mask Layer, fn func(e *entry, tri int)) {
	lo, hi, ok := g.cellRange(b)
	if !ok || (hi.x-lo.x+1)*(hi.y-lo.y+1) > maxVisitCells {
		g.visitAll(mask, fn)
		return
	}
	seen := make(map[ref]struct{})
	for y := lo.y; y <= hi.y; y++ {
		for x := lo.x; x <= hi.x; x++ {
			for _, r := range g.cells[cellKey{x, y}] {
				if r.e.layer&mask == 0 {
					continue
				}
				if _, dup := seen[r]; dup {
					continue
				}
				seen[r] = struct{}{}
				fn(r.e, r.tri)
			}
		}
	}
}

// visitLine walks the cells under a bounded segment; unbounded or very long
// lines scan everything.
func (g *gridIndex) visitLine(line geom.Line, mask Layer, fn func(e *entry, tri int)) {
	if !line.Bounded() {
		g.visitAll(mask, fn)
		return
	}
	b := geom.EmptyAABB().Extend(line.Origin).Extend(line.At(line.MaxT))
	g.visitBox(b, mask, fn)
}

func (g *gridIndex) visitAll(mask Layer, fn func(e *entry, tri int)) {
	for _, e := range g.entries {
		if e.layer&mask == 0 {
			continue
		}
		if e.shape.Collider == nil {
			fn(e, -1)
			continue
		}
		for i := range e.shape.Collider.Triangles {
			fn(e, i)
		}
	}
}
