package terrain

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"cragsman/internal/config"
)

// planeSource is a tilted plane with a flat grey material.
type planeSource struct {
	slope   float64
	nanFrom float64 // texels with x >= nanFrom return NaN material
}

func (p planeSource) HeightAt(pos mgl64.Vec2) float64 {
	return pos.X() * p.slope
}

func (p planeSource) MaterialAt(pos mgl64.Vec2, rockOnly bool) Material {
	if pos.X() >= p.nanFrom {
		return Material{Color: mgl64.Vec3{math.NaN(), 0, 0}}
	}
	return Material{Color: mgl64.Vec3{0.5, 0.5, 0.5}, Roughness: 0.25, Metallic: 1}
}

type nanHeight struct{ planeSource }

func (nanHeight) HeightAt(mgl64.Vec2) float64 { return math.NaN() }

func smallTerrain() config.TerrainConfig {
	cfg := config.Default().Terrain
	cfg.MeshResolution = 5
	cfg.TextureResolution = 8
	cfg.TileLength = 8
	return cfg
}

func TestSynthesizeMeshLayout(t *testing.T) {
	cfg := smallTerrain()
	s := NewSynthesizer(cfg, planeSource{slope: 0.5, nanFrom: math.Inf(1)})
	payload, err := s.Synthesize(2, -1)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	mesh := payload.Mesh
	if mesh.VertexCount() != 25 || mesh.TriangleCount() != 32 {
		t.Fatalf("unexpected mesh size: %d vertices %d triangles", mesh.VertexCount(), mesh.TriangleCount())
	}
	if first := mesh.Positions[0]; first.X() != -4 || first.Y() != -4 {
		t.Fatalf("first vertex should sit at the tile corner, got %v", first)
	}
	// world x of the first vertex is 2*8-4 = 12
	if h := mesh.Positions[0].Z(); math.Abs(h-6) > 1e-12 {
		t.Fatalf("expected height 6, got %v", h)
	}
	want := mgl64.Vec3{-0.5, 0, 1}.Normalize()
	if n := mesh.Normals[7]; !n.ApproxEqualThreshold(want, 1e-9) {
		t.Fatalf("normal %v, want %v", n, want)
	}
	for i := 0; i < mesh.TriangleCount(); i++ {
		if mesh.Triangle(i, mgl64.Vec3{}).Normal().Z() <= 0 {
			t.Fatalf("triangle %d faces away from the wall", i)
		}
	}
}

func TestSynthesizeColliderInWorldSpace(t *testing.T) {
	cfg := smallTerrain()
	cfg.ColliderStride = 2
	s := NewSynthesizer(cfg, planeSource{nanFrom: math.Inf(1)})
	payload, err := s.Synthesize(1, 1)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	c := payload.Collider
	if len(c.Triangles) != 8 {
		t.Fatalf("expected 8 decimated triangles, got %d", len(c.Triangles))
	}
	if c.Bounds.Min.X() != 4 || c.Bounds.Max.X() != 12 || c.Bounds.Min.Y() != 4 || c.Bounds.Max.Y() != 12 {
		t.Fatalf("unexpected collider bounds %+v", c.Bounds)
	}
}

func TestSynthesizeDilatesMaskedTexels(t *testing.T) {
	cfg := smallTerrain()
	cfg.DilationPasses = 8
	// texel centers sit at x = -3.5 .. 3.5 for tile 0; the last two columns are NaN
	s := NewSynthesizer(cfg, planeSource{nanFrom: 2})
	payload, err := s.Synthesize(0, 0)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if payload.Masked != 16 {
		t.Fatalf("expected 16 masked texels, got %d", payload.Masked)
	}
	for _, texel := range [][2]int{{7, 0}, {6, 4}, {7, 7}} {
		got := payload.Albedo.Texel(texel[0], texel[1])
		if got[0] != 128 || got[1] != 128 || got[2] != 128 {
			t.Fatalf("texel %v not dilated: %v", texel, got)
		}
		if m := payload.Material.Texel(texel[0], texel[1]); m[0] != 64 || m[1] != 255 {
			t.Fatalf("material texel %v not dilated: %v", texel, m)
		}
	}
}

func TestSynthesizeRejectsNonFiniteHeights(t *testing.T) {
	s := NewSynthesizer(smallTerrain(), nanHeight{})
	if _, err := s.Synthesize(0, 0); err == nil {
		t.Fatalf("expected error for NaN heights")
	}
}

func TestSynthesizeOracleTile(t *testing.T) {
	cfg := config.Default().Terrain
	cfg.TextureResolution = 16
	s := NewSynthesizer(cfg, NewOracle(3))
	payload, err := s.Synthesize(0, 3)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if payload.Masked != 0 {
		t.Fatalf("oracle should produce finite samples, masked %d", payload.Masked)
	}
	if payload.Size() <= 0 {
		t.Fatalf("expected positive payload size")
	}

	path, err := SavePreview(payload, filepath.Join(t.TempDir(), "preview"))
	if err != nil {
		t.Fatalf("save preview: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("preview not written: %v", err)
	}
}
