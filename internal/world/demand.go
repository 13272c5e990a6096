package world

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Demand returns every tile within loadRadius of player, scanning window tiles
// around the player tile in each direction.
func Demand(player mgl64.Vec3, tileLength, loadRadius float64, window int) map[TilePos]struct{} {
	center := TileAt(player, tileLength)
	needed := make(map[TilePos]struct{})
	for y := center.Y - window; y <= center.Y+window; y++ {
		for x := center.X - window; x <= center.X+window; x++ {
			p := TilePos{X: x, Y: y}
			if p.DistanceTo(player, tileLength) < loadRadius {
				needed[p] = struct{}{}
			}
		}
	}
	return needed
}

// sortedPositions returns the set in row-major order.
func sortedPositions(set map[TilePos]struct{}) []TilePos {
	out := make([]TilePos, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
