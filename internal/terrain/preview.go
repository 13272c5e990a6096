package terrain

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
)

// SavePreview writes the albedo of payload as a PNG into outputDir and
// returns the written path.
func SavePreview(payload *Payload, outputDir string) (string, error) {
	if payload == nil || payload.Albedo == nil {
		return "", fmt.Errorf("payload has no albedo")
	}
	if err := payload.Albedo.validate(); err != nil {
		return "", err
	}
	img := toNRGBA(payload.Albedo)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create preview dir: %w", err)
	}
	path := filepath.Join(outputDir, fmt.Sprintf("tile_%d_%d.png", payload.X, payload.Y))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create preview: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}
	return path, nil
}

// toNRGBA flips rows so that +y points up in the written image.
func toNRGBA(src *Image) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, src.Width, src.Height))
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			t := src.Texel(x, y)
			c := color.NRGBA{A: 255}
			switch src.Channels {
			case 1:
				c.R, c.G, c.B = t[0], t[0], t[0]
			case 2:
				c.R, c.G = t[0], t[1]
			default:
				c.R, c.G, c.B = t[0], t[1], t[2]
				if src.Channels == 4 {
					c.A = t[3]
				}
			}
			img.SetNRGBA(x, src.Height-1-y, c)
		}
	}
	return img
}
