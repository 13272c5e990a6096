package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// hsvToRgb converts hue, saturation and value in [0,1] to linear rgb.
func hsvToRgb(hsv mgl64.Vec3) mgl64.Vec3 {
	h := fract(hsv[0]) * 6
	s := clamp(hsv[1], 0, 1)
	v := clamp(hsv[2], 0, 1)
	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) % 6 {
	case 0:
		return mgl64.Vec3{v, t, p}
	case 1:
		return mgl64.Vec3{q, v, p}
	case 2:
		return mgl64.Vec3{p, v, t}
	case 3:
		return mgl64.Vec3{p, q, v}
	case 4:
		return mgl64.Vec3{t, p, v}
	default:
		return mgl64.Vec3{v, p, q}
	}
}

func rgbToHsv(rgb mgl64.Vec3) mgl64.Vec3 {
	r, g, b := rgb[0], rgb[1], rgb[2]
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC
	var h float64
	switch {
	case delta == 0:
		h = 0
	case maxC == r:
		h = fract(((g - b) / delta) / 6)
	case maxC == g:
		h = ((b-r)/delta + 2) / 6
	default:
		h = ((r-g)/delta + 4) / 6
	}
	var s float64
	if maxC > 0 {
		s = delta / maxC
	}
	return mgl64.Vec3{h, s, maxC}
}

// pdn builds a color from paint-program style hue degrees and percentages.
func pdn(h, s, v float64) mgl64.Vec3 {
	return hsvToRgb(mgl64.Vec3{h / 360, s / 100, v / 100})
}

func mixColor(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// interpolateN samples a gradient of colors at f in [0,1).
func interpolateN(colors []mgl64.Vec3, f float64) mgl64.Vec3 {
	f = clamp(f, 0, math.Nextafter(1, 0))
	f *= float64(len(colors) - 1)
	i := int(f)
	return mixColor(colors[i], colors[i+1], f-float64(i))
}
