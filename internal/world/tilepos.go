package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// TilePos identifies a terrain tile on the wall grid. Tile (x, y) is centered
// at (x, y)*tileLength.
type TilePos struct {
	X int
	Y int
}

func (p TilePos) String() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// Less orders positions row-major: by y, then by x.
func (p TilePos) Less(o TilePos) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

// Center returns the world xy of the tile center.
func (p TilePos) Center(tileLength float64) mgl64.Vec2 {
	return mgl64.Vec2{float64(p.X) * tileLength, float64(p.Y) * tileLength}
}

// DistanceTo returns the xy distance from the tile center to pos.
func (p TilePos) DistanceTo(pos mgl64.Vec3, tileLength float64) float64 {
	return p.Center(tileLength).Sub(mgl64.Vec2{pos.X(), pos.Y()}).Len()
}

// TileAt returns the tile whose center is nearest to pos.
func TileAt(pos mgl64.Vec3, tileLength float64) TilePos {
	return TilePos{
		X: int(math.Floor(pos.X()/tileLength + 0.5)),
		Y: int(math.Floor(pos.Y()/tileLength + 0.5)),
	}
}

// Key packs the position into a single integer, used as a cache key.
func (p TilePos) Key() uint64 {
	return uint64(uint32(int32(p.X)))<<32 | uint64(uint32(int32(p.Y)))
}
