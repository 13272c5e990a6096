package terrain

import "fmt"

// Image is a tightly packed 8-bit image with one to four channels.
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

func NewImage(width, height, channels int) *Image {
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

func (img *Image) offset(x, y int) int {
	return (y*img.Width + x) * img.Channels
}

// Texel returns the channel slice of one texel. The slice aliases Pix.
func (img *Image) Texel(x, y int) []uint8 {
	o := img.offset(x, y)
	return img.Pix[o : o+img.Channels]
}

// SetTexel writes values into the texel at (x, y).
func (img *Image) SetTexel(x, y int, values ...uint8) {
	copy(img.Texel(x, y), values)
}

// Size returns the byte length of the pixel data.
func (img *Image) Size() int {
	return len(img.Pix)
}

func (img *Image) validate() error {
	if img.Width <= 0 || img.Height <= 0 || img.Channels <= 0 || img.Channels > 4 {
		return fmt.Errorf("invalid image shape %dx%dx%d", img.Width, img.Height, img.Channels)
	}
	if len(img.Pix) != img.Width*img.Height*img.Channels {
		return fmt.Errorf("image data length %d does not match %dx%dx%d", len(img.Pix), img.Width, img.Height, img.Channels)
	}
	return nil
}

// dilate fills masked texels from their valid 8-neighbours, one ring per
// pass. valid is updated in place. It returns the number of texels still
// masked afterwards.
func dilate(img *Image, valid []bool, passes int) int {
	w, h, c := img.Width, img.Height, img.Channels
	sum := make([]int, c)
	for pass := 0; pass < passes; pass++ {
		filled := make([]bool, len(valid))
		changed := false
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if valid[y*w+x] {
					continue
				}
				for i := range sum {
					sum[i] = 0
				}
				count := 0
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := x+dx, y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h || !valid[ny*w+nx] {
							continue
						}
						for i, v := range img.Texel(nx, ny) {
							sum[i] += int(v)
						}
						count++
					}
				}
				if count == 0 {
					continue
				}
				texel := img.Texel(x, y)
				for i := range texel {
					texel[i] = uint8((sum[i] + count/2) / count)
				}
				filled[y*w+x] = true
				changed = true
			}
		}
		for i, f := range filled {
			if f {
				valid[i] = true
			}
		}
		if !changed {
			break
		}
	}
	remaining := 0
	for _, v := range valid {
		if !v {
			remaining++
		}
	}
	return remaining
}

func toByte(v float64) uint8 {
	v = clamp(v, 0, 1)
	return uint8(v*255 + 0.5)
}
