package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Palette selects the base rock coloring of a world.
type Palette int

const (
	PalettePaper Palette = iota
	PaletteSphinx
	PaletteWhite
	PaletteDarkRock1
	PaletteDarkRock2
)

func (p Palette) String() string {
	switch p {
	case PalettePaper:
		return "paper"
	case PaletteSphinx:
		return "sphinx"
	case PaletteWhite:
		return "white"
	case PaletteDarkRock1:
		return "darkrock1"
	case PaletteDarkRock2:
		return "darkrock2"
	default:
		return "unknown"
	}
}

// Material is the surface description at one point of the wall.
type Material struct {
	Color     mgl64.Vec3 // linear rgb in [0,1]
	Roughness float64
	Metallic  float64
}

// Oracle answers height and material queries for a seeded world. It holds no
// mutable state and is safe for concurrent use.
type Oracle struct {
	seed    uint32
	palette Palette

	slabOffset, slabMask         cloudNoise
	salienceCell                 cellNoise
	salienceClouds               cloudNoise
	waveScale, waveRot, waveMask cloudNoise
	waveCell                     cellNoise
	crackX1, crackX2             cloudNoise
	crackY1, crackY2             cloudNoise

	recolorH, recolorS, recolorV cloudNoise

	smallCrackCell cellNoise
	smallCrackMask cloudNoise
	glisterCell    cellNoise
	glisterShade   cloudNoise
	largeCrackOffX cellNoise
	largeCrackOffY cellNoise
	largeCrackCell cellNoise
	largeCrackMask cloudNoise
	grassThreshold cloudNoise
	grassMask      cloudNoise
	grassH, grassS cloudNoise
	grassV         cloudNoise
	grassRoughness cloudNoise
	base           func(pos mgl64.Vec2) Material
}

// NewOracle builds the noise fields for seed.
func NewOracle(seed int64) *Oracle {
	s := uint32(seed)
	o := &Oracle{
		seed:    s,
		palette: Palette(s % 5),

		slabOffset:     newClouds(s+4, 3),
		slabMask:       newClouds(s+5, 3),
		salienceCell:   newCell(s+7, cellDistance),
		salienceClouds: newClouds(s+8, 3),
		waveScale:      newClouds(s+10, 3),
		waveRot:        newClouds(s+11, 3),
		waveMask:       newClouds(s+12, 3),
		waveCell:       newCell(s+15, cellSubtract),
		crackX1:        newClouds(s+15, 3),
		crackX2:        newClouds(s+16, 3),
		crackY1:        newClouds(s+17, 3),
		crackY2:        newClouds(s+18, 3),

		recolorH: newValue(s + 123),
		recolorS: newValue(s + 124),
		recolorV: newValue(s + 125),

		smallCrackCell: newCell(s+6974, cellSubtract),
		smallCrackMask: newClouds(s+555, 3),
		glisterCell:    newCell(s+6975, cellDistance),
		glisterShade:   newClouds(s+554, 2),
		largeCrackOffX: newCellIndex(s+6976, 1),
		largeCrackOffY: newCellIndex(s+6977, 1),
		largeCrackCell: newCell(s+6978, cellSubtract),
		largeCrackMask: newClouds(s+556, 3),
		grassThreshold: newClouds(s+557, 3),
		grassMask:      newClouds(s+558, 3),
		grassH:         newValue(s + 823),
		grassS:         newValue(s + 824),
		grassV:         newValue(s + 825),
		grassRoughness: newClouds(s+559, 3),
	}
	o.base = o.basePalette()
	return o
}

// Seed returns the 32-bit seed the fields were built from.
func (o *Oracle) Seed() uint32 { return o.seed }

// Palette returns the base coloring selected by the seed.
func (o *Oracle) Palette() Palette { return o.palette }

// HeightAt returns the z offset of the wall at pos.
func (o *Oracle) HeightAt(pos mgl64.Vec2) float64 {
	result := -pos.Y() * 0.2

	{ // horizontal slabs
		off := clamp01(o.slabOffset, pos.Mul(0.0065))
		mask := clamp01(o.slabMask, pos.Mul(0.00715))
		result += slab(pos.Y()*0.027+off*2.5) * sharpEdge(mask*2-0.7) * 5
	}

	{ // saliences
		a := o.salienceCell.eval(pos.Mul(0.0241))
		b := o.salienceClouds.eval(pos.Mul(0.041))
		result += sharpEdge(a + b - 0.4)
	}

	{ // medium-frequency warped cells
		scl := clamp01(o.waveScale, pos.Mul(0.00921))
		rot := clamp01(o.waveRot, pos.Mul(0.00398))
		off := mgl64.Vec2{rot + 0.5, 1.5 - rot}
		mask := clamp01(o.waveMask, pos.Mul(0.00654))
		a := o.waveCell.eval(pos.Mul(0.01).Add(off).Mul(scl + 0.5))
		ridge := (math.Min(a+0.95, 1) - 0.95) * 20
		result += ridge * ridge * ridge * sharpEdge(mask-0.1) * 0.5
	}

	{ // x-aligned cracks
		a := math.Pow(clamp01(o.crackX1, mgl64.Vec2{pos.X() * 0.036, pos.Y() * 0.13}), 0.2)
		b := math.Pow(clamp01(o.crackX2, mgl64.Vec2{pos.X() * 0.047, pos.Y() * 0.029}), 0.1)
		result += math.Min(a, b) * 3
	}

	{ // y-aligned cracks
		a := math.Pow(clamp01(o.crackY1, mgl64.Vec2{pos.X() * 0.055, pos.Y() * 0.0135}), 0.2)
		b := math.Pow(clamp01(o.crackY2, mgl64.Vec2{pos.X() * 0.0165, pos.Y() * 0.0255}), 0.1)
		result += math.Min(a, b) * 3
	}

	return result
}

// MaterialAt returns the surface material at pos. With rockOnly the large
// cracks and grass are skipped.
func (o *Oracle) MaterialAt(pos mgl64.Vec2, rockOnly bool) Material {
	m := o.base(pos)

	{ // small cracks
		f := o.smallCrackCell.eval(pos.Mul(0.187))
		mask := clamp01(o.smallCrackMask, pos.Mul(0.43))
		if f < 0.02 && mask < 0.5 {
			m.Color = m.Color.Mul(0.6)
			m.Roughness *= 1.2
		}
	}

	// glistering spots
	if o.glisterCell.eval(pos.Mul(0.084)) > 0.95 {
		c := clamp01(o.glisterShade, pos.Mul(3))*0.2 + 0.8
		m.Color = mgl64.Vec3{c, c, c}
		m.Roughness = 0.2
		m.Metallic = 0.4
	}

	if rockOnly {
		return m
	}

	{ // large cracks
		off := mgl64.Vec2{o.largeCrackOffX.eval(pos.Mul(0.1)), o.largeCrackOffY.eval(pos.Mul(0.1))}
		f := o.largeCrackCell.eval(pos.Mul(0.034).Add(off.Mul(0.23)))
		mask := clamp01(o.largeCrackMask, pos.Mul(0.023))
		if f < 0.015 && mask < 0.4 {
			m.Color = m.Color.Mul(0.3)
			m.Roughness *= 1.5
		}
	}

	// positive means the surface faces up
	vn := (o.HeightAt(pos.Add(mgl64.Vec2{0, -0.1})) - o.HeightAt(pos)) / 0.1
	if thr := clamp01(o.grassThreshold, pos.Mul(0.015)); vn > thr+0.2 {
		w := sharpEdge(clamp01(o.grassMask, pos.Mul(2.423)))
		grass := hsvToRgb(mgl64.Vec3{
			clamp01(o.grassH, pos)*0.3 + 0.13,
			clamp01(o.grassS, pos)*0.2 + 0.5,
			clamp01(o.grassV, pos)*0.2 + 0.5,
		})
		r := clamp01(o.grassRoughness, pos.Mul(1.23))*0.4 + 0.2
		m.Color = mixColor(m.Color, grass, w)
		m.Roughness = lerp(m.Roughness, r, w)
		m.Metallic = lerp(m.Metallic, 0.01, w)
	}
	return m
}

// recolor jitters a color in hsv space.
func (o *Oracle) recolor(color mgl64.Vec3, deviation float64, pos mgl64.Vec2) mgl64.Vec3 {
	h := clamp01(o.recolorH, pos)*0.5 + 0.25
	s := clamp01(o.recolorS, pos)
	v := clamp01(o.recolorV, pos)
	hsv := rgbToHsv(color).Add(mgl64.Vec3{h - 0.5, s - 0.5, v - 0.5}.Mul(deviation))
	hsv[0] = fract(hsv[0] + 1)
	hsv[1] = clamp(hsv[1], 0, 1)
	hsv[2] = clamp(hsv[2], 0, 1)
	return hsvToRgb(hsv)
}
