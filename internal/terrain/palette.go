package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	sphinxColors = []mgl64.Vec3{
		pdn(31, 34, 96),
		pdn(31, 56, 93),
		pdn(26, 68, 80),
		pdn(21, 69, 55),
	}
	whiteColors = []mgl64.Vec3{
		pdn(19, 1, 96),
		pdn(14, 3, 88),
		pdn(217, 9, 74),
	}
	veinColors = []mgl64.Vec3{
		pdn(18, 18, 60),
		pdn(21, 22, 49),
	}
	darkRock1Colors = []mgl64.Vec3{
		pdn(240, 1, 45),
		pdn(230, 5, 41),
		pdn(220, 25, 27),
	}
	darkRock2Colors = []mgl64.Vec3{
		pdn(240, 1, 45),
		pdn(230, 6, 35),
		pdn(240, 11, 28),
		pdn(232, 27, 21),
	}
)

func (o *Oracle) basePalette() func(mgl64.Vec2) Material {
	s := o.seed
	switch o.palette {
	case PalettePaper:
		return o.paper(s)
	case PaletteSphinx:
		return o.sphinx(s)
	case PaletteWhite:
		return o.white(s)
	case PaletteDarkRock1:
		return o.darkRock1(s)
	default:
		return o.darkRock(s, darkRock2Colors)
	}
}

func (o *Oracle) paper(s uint32) func(mgl64.Vec2) Material {
	hue := newClouds(s+143, 5)
	sat := newClouds(s+142, 5)
	val := newClouds(s+141, 5)
	split := newClouds(s+140, 3)
	rough := newClouds(s+139, 3)
	offX := newCellIndex(s+151, 1)
	offY := newCellIndex(s+152, 1)
	return func(pos mgl64.Vec2) Material {
		off := mgl64.Vec2{offX.eval(pos.Mul(0.063)), offY.eval(pos.Mul(0.063))}
		if clamp01(split, pos.Mul(0.097).Add(off.Mul(2.2))) < 0.6 {
			return Material{
				Color: hsvToRgb(mgl64.Vec3{
					clamp01(hue, pos.Mul(0.134))*0.01 + 0.08,
					clamp01(sat, pos.Mul(0.344))*0.2 + 0.2,
					clamp01(val, pos.Mul(0.100))*0.4 + 0.55,
				}),
				Roughness: clamp01(rough, pos.Mul(0.848))*0.5 + 0.3,
				Metallic:  0.02,
			}
		}
		return Material{
			Color: hsvToRgb(mgl64.Vec3{
				clamp01(hue, pos.Mul(0.321))*0.02 + 0.094,
				clamp01(sat, pos.Mul(0.258))*0.3 + 0.08,
				clamp01(val, pos.Mul(0.369))*0.2 + 0.59,
			}),
			Roughness: 0.5,
			Metallic:  0.049,
		}
	}
}

func (o *Oracle) sphinx(s uint32) func(mgl64.Vec2) Material {
	bands := newClouds(s+153, 4)
	rough := newClouds(s+154, 3)
	return func(pos mgl64.Vec2) Material {
		off := clamp01(bands, pos.Mul(0.0041))
		y := math.Mod(pos.Y()*0.012+1000, 4)
		if y < 0 {
			y += 4
		}
		c := math.Mod(y+off*2-1+4, 4)
		i := int(c)
		f := sharpEdge(c - float64(i))
		next := (i + 1) % len(sphinxColors)
		color := mixColor(sphinxColors[i], sphinxColors[next], f)
		return Material{
			Color:     o.recolor(color, 0.1, pos.Mul(1.1)),
			Roughness: clamp01(rough, pos.Mul(0.941))*0.3 + 0.4,
			Metallic:  0.02,
		}
	}
}

func (o *Oracle) white(s uint32) func(mgl64.Vec2) Material {
	warpX := newClouds(s+253, 3)
	warpY := newClouds(s+254, 3)
	pick := newValue(s + 255)
	rough := newClouds(s+256, 3)
	return func(pos mgl64.Vec2) Material {
		off := mgl64.Vec2{clamp01(warpX, pos.Mul(0.1)), clamp01(warpY, pos.Mul(0.1))}
		color := interpolateN(whiteColors, clamp01(pick, pos.Mul(0.1).Add(off)))
		color = o.recolor(color, 0.2, pos.Mul(0.72))
		color = o.recolor(color, 0.13, pos.Mul(1.3))
		return Material{
			Color:     color,
			Roughness: math.Sqrt(clamp01(rough, pos.Mul(1.441)))*0.7 + 0.01,
			Metallic:  0.05,
		}
	}
}

func (o *Oracle) darkRock1(s uint32) func(mgl64.Vec2) Material {
	warpX := newClouds(s+323, 3)
	warpY := newClouds(s+324, 3)
	veinMask := newClouds(s+325, 3)
	veinCell := newCell(s+326, cellSubtract)
	veinShade := newValue(s + 741)
	veinRough := newClouds(s+154, 3)
	rocks := o.darkRock(s, darkRock1Colors)
	return func(pos mgl64.Vec2) Material {
		off := mgl64.Vec2{clamp01(warpX, pos.Mul(0.043)), clamp01(warpY, pos.Mul(0.043))}
		f := veinCell.eval(pos.Mul(0.0147).Add(off.Mul(0.23)))
		m := clamp01(veinMask, pos.Mul(0.018))
		if f < 0.017 && m < 0.35 {
			return Material{
				Color:     mixColor(veinColors[0], veinColors[1], clamp01(veinShade, pos)),
				Roughness: clamp01(veinRough, pos.Mul(0.718))*0.3 + 0.3,
				Metallic:  0.6,
			}
		}
		return rocks(pos)
	}
}

func (o *Oracle) darkRock(s uint32, colors []mgl64.Vec3) func(mgl64.Vec2) Material {
	warpX := newClouds(s+103, 3)
	warpY := newClouds(s+112, 3)
	pick := newClouds(s+121, 3)
	rough := newClouds(s+148, 3)
	return func(pos mgl64.Vec2) Material {
		off := mgl64.Vec2{clamp01(warpX, pos.Mul(0.065)), clamp01(warpY, pos.Mul(0.1))}
		f := clamp01(pick, pos.Mul(0.0756).Add(off))
		color := o.recolor(interpolateN(colors, f), 0.1, pos.Mul(2.1))
		return Material{
			Color:     color,
			Roughness: clamp01(rough, pos.Mul(1.132))*0.4 + 0.3,
			Metallic:  0.02,
		}
	}
}
