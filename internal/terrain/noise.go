package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// noise2 is a seeded two dimensional noise field.
type noise2 interface {
	eval(p mgl64.Vec2) float64
}

// cloudNoise is fractal hashed value noise in [-1,1].
type cloudNoise struct {
	seed    uint32
	octaves int
}

func newClouds(seed uint32, octaves int) cloudNoise {
	if octaves < 1 {
		octaves = 1
	}
	return cloudNoise{seed: seed, octaves: octaves}
}

// newValue is single octave value noise with its own seed offset.
func newValue(seed uint32) cloudNoise {
	return newClouds(seed+745, 1)
}

func (n cloudNoise) eval(p mgl64.Vec2) float64 {
	frequency := 1.0
	amplitude := 1.0
	sum := 0.0
	maxAmplitude := 0.0
	for i := 0; i < n.octaves; i++ {
		sum += valueNoise(p.X()*frequency, p.Y()*frequency, n.seed+uint32(i)*1013) * amplitude
		maxAmplitude += amplitude
		amplitude *= 0.5
		frequency *= 2
	}
	return sum / maxAmplitude
}

func valueNoise(x, y float64, seed uint32) float64 {
	fx := math.Floor(x)
	fy := math.Floor(y)
	x0 := int(fx)
	y0 := int(fy)
	x1 := x0 + 1
	y1 := y0 + 1

	sx := smooth(x - fx)
	sy := smooth(y - fy)

	n0 := random2D(x0, y0, seed)
	n1 := random2D(x1, y0, seed)
	ix0 := lerp(n0, n1, sx)

	n2 := random2D(x0, y1, seed)
	n3 := random2D(x1, y1, seed)
	ix1 := lerp(n2, n3, sx)

	return lerp(ix0, ix1, sy)
}

type cellOperation int

const (
	cellDistance cellOperation = iota // distance to the index0-th nearest feature
	cellSubtract                      // F(index1) - F(index0)
)

// cellNoise is cellular (Worley) noise with one jittered feature point per
// unit cell and euclidean distances.
type cellNoise struct {
	seed   uint32
	op     cellOperation
	index0 int
	index1 int
}

func newCell(seed uint32, op cellOperation) cellNoise {
	return cellNoise{seed: seed, op: op, index0: 0, index1: 1}
}

func newCellIndex(seed uint32, index0 int) cellNoise {
	return cellNoise{seed: seed, op: cellDistance, index0: index0, index1: index0 + 1}
}

func (n cellNoise) eval(p mgl64.Vec2) float64 {
	fx := math.Floor(p.X())
	fy := math.Floor(p.Y())
	cx := int(fx)
	cy := int(fy)

	// three nearest distances, ascending
	d := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	for oy := -1; oy <= 1; oy++ {
		for ox := -1; ox <= 1; ox++ {
			gx := cx + ox
			gy := cy + oy
			h := hash3(gx, gy, int(n.seed))
			px := float64(gx) + float64(h&0xFFFF)/0x10000
			py := float64(gy) + float64(h>>16)/0x10000
			dx := px - p.X()
			dy := py - p.Y()
			dist := math.Sqrt(dx*dx + dy*dy)
			switch {
			case dist < d[0]:
				d[2], d[1], d[0] = d[1], d[0], dist
			case dist < d[1]:
				d[2], d[1] = d[1], dist
			case dist < d[2]:
				d[2] = dist
			}
		}
	}

	if n.op == cellSubtract {
		return d[n.index1] - d[n.index0]
	}
	return d[n.index0]
}

// clamp01 maps a [-1,1] noise sample to [0,1].
func clamp01(n noise2, p mgl64.Vec2) float64 {
	return n.eval(p)*0.5 + 0.5
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func random2D(x, y int, seed uint32) float64 {
	return float64(hash3(x, y, int(seed))&0xFFFF)/0x8000 - 1.0
}

func hash3(x, y, z int) uint32 {
	h := uint32(x*374761393 + y*668265263 + z*2147483647)
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}

func rerange(v, ia, ib, oa, ob float64) float64 {
	return (v-ia)/(ib-ia)*(ob-oa) + oa
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sharpEdge(v float64) float64 {
	return rerange(clamp(v, 0.45, 0.55), 0.45, 0.55, 0, 1)
}

// fract returns v modulo 1 in [0,1) for negative inputs too.
func fract(v float64) float64 {
	return v - math.Floor(v)
}

// slab rises linearly over most of the period and falls back along a cosine
// so consecutive slabs join without a step.
func slab(v float64) float64 {
	v = fract(v)
	if v > 0.8 {
		return (1 + math.Cos(math.Pi*(v-0.8)/0.2)) * 0.5
	}
	return v / 0.8
}
