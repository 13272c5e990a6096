// Package clinch streams the grab points scattered over the wall around the
// player.
package clinch

import (
	"math"
	"math/rand"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"

	"cragsman/internal/collision"
	"cragsman/internal/config"
	"cragsman/internal/core"
	"cragsman/internal/geom"
	"cragsman/internal/physics"
	"cragsman/internal/world"
)

// idBase keeps clinch spheres clear of the terrain collider ids.
const idBase uint64 = 1 << 40

const demandWindow = 10

// HeightField is the terrain height used to place clinches on the surface.
type HeightField interface {
	HeightAt(p mgl64.Vec2) float64
}

// Clinch is one grab point: a static body with a sphere in the clinch layer.
type Clinch struct {
	Body     physics.BodyID
	Position mgl64.Vec3
	Tile     world.TilePos
}

func (c *Clinch) colliderID() uint64 { return idBase + uint64(c.Body) }

type tile struct {
	pos      world.TilePos
	clinches []*Clinch
}

// Field owns the clinch tiles. It runs on the control goroutine.
type Field struct {
	cfg       config.ClinchConfig
	seed      int64
	heights   HeightField
	bodies    *physics.World
	structure *collision.Structure
	log       *logrus.Entry

	tiles  map[world.TilePos]*tile
	byID   map[uint64]*Clinch
	byBody map[physics.BodyID]*Clinch
}

func NewField(cfg config.ClinchConfig, seed int64, heights HeightField, bodies *physics.World, structure *collision.Structure, log *logrus.Entry) *Field {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Field{
		cfg:       cfg,
		seed:      seed,
		heights:   heights,
		bodies:    bodies,
		structure: structure,
		log:       log,
		tiles:     make(map[world.TilePos]*tile),
		byID:      make(map[uint64]*Clinch),
		byBody:    make(map[physics.BodyID]*Clinch),
	}
}

// Count returns how many clinches tile y carries. Clinches thin out higher up
// the wall.
func Count(y int) int {
	return int(math.Exp(math.Max(float64(y-2), 0)*-0.01)*5) + 1
}

// Positions returns the deterministic clinch positions of a tile.
func (f *Field) Positions(pos world.TilePos) []mgl64.Vec3 {
	rng := rand.New(rand.NewSource(tileSeed(f.seed, pos)))
	n := Count(pos.Y)
	out := make([]mgl64.Vec3, 0, n)
	for i := 0; i < n; i++ {
		xy := mgl64.Vec2{
			(float64(pos.X) + rng.Float64() - 0.5) * f.cfg.TileLength,
			(float64(pos.Y) + rng.Float64() - 0.5) * f.cfg.TileLength,
		}
		out = append(out, mgl64.Vec3{xy[0], xy[1], f.heights.HeightAt(xy) + f.cfg.TerrainOffset})
	}
	return out
}

// Update drops far tiles, populates newly needed ones and re-indexes the
// collision structure when membership changed.
func (f *Field) Update(ctx core.WorldContext) bool {
	changed := false
	for pos, t := range f.tiles {
		if pos.DistanceTo(ctx.PlayerPosition, f.cfg.TileLength) > f.cfg.UnloadRadius {
			f.unload(t)
			delete(f.tiles, pos)
			changed = true
		}
	}

	needed := world.Demand(ctx.PlayerPosition, f.cfg.TileLength, f.cfg.LoadRadius, demandWindow)
	positions := make([]world.TilePos, 0, len(needed))
	for pos := range needed {
		if _, ok := f.tiles[pos]; !ok {
			positions = append(positions, pos)
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })
	for _, pos := range positions {
		if err := f.load(pos); err != nil {
			ctx.Logger().WithError(err).WithField("tile", pos.String()).Error("clinch tile failed")
			continue
		}
		changed = true
	}

	if changed {
		f.structure.RebuildIfDirty()
	}
	return changed
}

func (f *Field) load(pos world.TilePos) error {
	t := &tile{pos: pos}
	for _, p := range f.Positions(pos) {
		id, err := f.bodies.AddBody(physics.Body{Kind: physics.Static, Position: p})
		if err != nil {
			for _, c := range t.clinches {
				f.drop(c)
			}
			return err
		}
		c := &Clinch{Body: id, Position: p, Tile: pos}
		t.clinches = append(t.clinches, c)
		f.byID[c.colliderID()] = c
		f.byBody[id] = c
		f.structure.Update(c.colliderID(), collision.SphereShape(f.cfg.Radius), p, collision.LayerClinch)
	}
	f.tiles[pos] = t
	return nil
}

func (f *Field) unload(t *tile) {
	for _, c := range t.clinches {
		f.drop(c)
	}
}

func (f *Field) drop(c *Clinch) {
	f.structure.Remove(c.colliderID())
	f.bodies.RemoveBody(c.Body)
	delete(f.byID, c.colliderID())
	delete(f.byBody, c.Body)
}

// Len returns the number of live clinches.
func (f *Field) Len() int { return len(f.byBody) }

// Tiles returns the number of populated tiles.
func (f *Field) Tiles() int { return len(f.tiles) }

// ByBody maps a physics body back to its clinch.
func (f *Field) ByBody(id physics.BodyID) (*Clinch, bool) {
	c, ok := f.byBody[id]
	return c, ok
}

// Nearest returns the clinch whose center is closest to pos, within maxDist.
func (f *Field) Nearest(pos mgl64.Vec3, maxDist float64) (*Clinch, bool) {
	var best *Clinch
	bestDist := math.Inf(1)
	for _, contact := range f.structure.QuerySphere(pos, maxDist, collision.LayerClinch) {
		c, ok := f.byID[contact.ID]
		if !ok {
			continue
		}
		d := c.Position.Sub(pos).Len()
		if d <= maxDist && d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != nil
}

// Intersect returns the first clinch hit by line.
func (f *Field) Intersect(line geom.Line) (*Clinch, float64, bool) {
	hit, ok := f.structure.QueryRay(line, collision.LayerClinch)
	if !ok {
		return nil, 0, false
	}
	c, ok := f.byID[hit.ID]
	if !ok {
		return nil, 0, false
	}
	return c, hit.Distance, true
}

// Initial returns the count clinches nearest to the world origin, or false
// when fewer are loaded.
func (f *Field) Initial(count int) ([]*Clinch, bool) {
	if len(f.byBody) < count {
		return nil, false
	}
	all := make([]*Clinch, 0, len(f.byBody))
	for _, c := range f.byBody {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		di, dj := all[i].Position.Len(), all[j].Position.Len()
		if di != dj {
			return di < dj
		}
		return all[i].Body < all[j].Body
	})
	return all[:count], true
}

// tileSeed mixes the field seed with the tile coordinates (splitmix64).
func tileSeed(seed int64, pos world.TilePos) int64 {
	z := uint64(seed) ^ pos.Key()*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}
