package terrain

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"cragsman/internal/config"
	"cragsman/internal/geom"
)

// Source answers the height and material queries a tile is synthesized from.
// *Oracle is the production implementation.
type Source interface {
	HeightAt(pos mgl64.Vec2) float64
	MaterialAt(pos mgl64.Vec2, rockOnly bool) Material
}

// Payload is the CPU side output of one tile synthesis.
type Payload struct {
	X, Y     int
	Mesh     *Mesh
	Collider *Collider
	Albedo   *Image // RGB8
	Material *Image // RG8: roughness, metallic
	Masked   int    // texels that needed dilation
}

// Size approximates the memory held by the payload in bytes.
func (p *Payload) Size() int64 {
	if p == nil {
		return 0
	}
	var n int64
	if p.Mesh != nil {
		n += int64(len(p.Mesh.Positions))*24*2 + int64(len(p.Mesh.UVs))*16
	}
	if p.Collider != nil {
		n += int64(len(p.Collider.Triangles)) * 72
	}
	if p.Albedo != nil {
		n += int64(p.Albedo.Size())
	}
	if p.Material != nil {
		n += int64(p.Material.Size())
	}
	return n
}

// normalStep is the forward difference distance for mesh normals.
const normalStep = 0.1

// Synthesizer turns tile coordinates into meshes, colliders and textures.
type Synthesizer struct {
	cfg             config.TerrainConfig
	src             Source
	indices         []uint32
	colliderIndices []uint32
	colliderRes     int
}

func NewSynthesizer(cfg config.TerrainConfig, src Source) *Synthesizer {
	stride := cfg.ColliderStride
	if stride < 1 {
		stride = 1
	}
	colliderRes := (cfg.MeshResolution-1)/stride + 1
	return &Synthesizer{
		cfg:             cfg,
		src:             src,
		indices:         gridIndices(cfg.MeshResolution),
		colliderIndices: gridIndices(colliderRes),
		colliderRes:     colliderRes,
	}
}

// TileOrigin returns the world position of the tile center.
func (s *Synthesizer) TileOrigin(x, y int) mgl64.Vec2 {
	return mgl64.Vec2{float64(x), float64(y)}.Mul(s.cfg.TileLength)
}

// Synthesize builds the full payload of tile (x, y). Any non-finite height in
// the mesh is an error; non-finite texture samples are masked and dilated.
func (s *Synthesizer) Synthesize(x, y int) (*Payload, error) {
	mesh, err := s.mesh(x, y)
	if err != nil {
		return nil, fmt.Errorf("tile %d,%d mesh: %w", x, y, err)
	}
	albedo, material, masked := s.textures(x, y)
	if masked < 0 {
		return nil, fmt.Errorf("tile %d,%d textures: no finite samples", x, y)
	}
	return &Payload{
		X:        x,
		Y:        y,
		Mesh:     mesh,
		Collider: s.collider(mesh, x, y),
		Albedo:   albedo,
		Material: material,
		Masked:   masked,
	}, nil
}

func (s *Synthesizer) mesh(x, y int) (*Mesh, error) {
	r := s.cfg.MeshResolution
	l := s.cfg.TileLength
	origin := s.TileOrigin(x, y)
	mesh := &Mesh{
		Resolution: r,
		Positions:  make([]mgl64.Vec3, 0, r*r),
		Normals:    make([]mgl64.Vec3, 0, r*r),
		UVs:        make([]mgl64.Vec2, 0, r*r),
		Indices:    s.indices,
	}
	for j := 0; j < r; j++ {
		for i := 0; i < r; i++ {
			uv := mgl64.Vec2{float64(i) / float64(r-1), float64(j) / float64(r-1)}
			local := mgl64.Vec2{(uv.X() - 0.5) * l, (uv.Y() - 0.5) * l}
			world := origin.Add(local)
			h := s.src.HeightAt(world)
			hx := s.src.HeightAt(world.Add(mgl64.Vec2{normalStep, 0}))
			hy := s.src.HeightAt(world.Add(mgl64.Vec2{0, normalStep}))
			if !finite(h) || !finite(hx) || !finite(hy) {
				return nil, fmt.Errorf("non-finite height at %.3f,%.3f", world.X(), world.Y())
			}
			n := geom.SafeNormalize(mgl64.Vec3{-(hx - h) / normalStep, -(hy - h) / normalStep, 1})
			mesh.Positions = append(mesh.Positions, mgl64.Vec3{local.X(), local.Y(), h})
			mesh.Normals = append(mesh.Normals, n)
			mesh.UVs = append(mesh.UVs, uv)
		}
	}
	return mesh, nil
}

func (s *Synthesizer) collider(mesh *Mesh, x, y int) *Collider {
	stride := s.cfg.ColliderStride
	if stride < 1 {
		stride = 1
	}
	rc := s.colliderRes
	r := mesh.Resolution
	origin := s.TileOrigin(x, y)
	offset := mgl64.Vec3{origin.X(), origin.Y(), 0}

	positions := make([]mgl64.Vec3, 0, rc*rc)
	for j := 0; j < rc; j++ {
		for i := 0; i < rc; i++ {
			positions = append(positions, mesh.Positions[(j*stride)*r+i*stride].Add(offset))
		}
	}
	tris := make([]geom.Triangle, 0, len(s.colliderIndices)/3)
	for k := 0; k+2 < len(s.colliderIndices); k += 3 {
		tris = append(tris, geom.Triangle{
			positions[s.colliderIndices[k]],
			positions[s.colliderIndices[k+1]],
			positions[s.colliderIndices[k+2]],
		})
	}
	return NewCollider(tris)
}

// textures samples albedo and material at texel centers. It returns -1 for
// masked when no texel could be sampled.
func (s *Synthesizer) textures(x, y int) (*Image, *Image, int) {
	res := s.cfg.TextureResolution
	l := s.cfg.TileLength
	albedo := NewImage(res, res, 3)
	material := NewImage(res, res, 2)
	valid := make([]bool, res*res)
	masked := 0
	tile := mgl64.Vec2{float64(x), float64(y)}

	for j := 0; j < res; j++ {
		for i := 0; i < res; i++ {
			frac := mgl64.Vec2{(float64(i) + 0.5) / float64(res), (float64(j) + 0.5) / float64(res)}
			world := tile.Add(frac).Sub(mgl64.Vec2{0.5, 0.5}).Mul(l)
			m := s.src.MaterialAt(world, false)
			if !finite(m.Color[0]) || !finite(m.Color[1]) || !finite(m.Color[2]) || !finite(m.Roughness) || !finite(m.Metallic) {
				masked++
				continue
			}
			valid[j*res+i] = true
			albedo.SetTexel(i, j, toByte(m.Color[0]), toByte(m.Color[1]), toByte(m.Color[2]))
			material.SetTexel(i, j, toByte(m.Roughness), toByte(m.Metallic))
		}
	}
	if masked == res*res {
		return nil, nil, -1
	}
	if masked > 0 {
		validMaterial := append([]bool(nil), valid...)
		dilate(albedo, valid, s.cfg.DilationPasses)
		dilate(material, validMaterial, s.cfg.DilationPasses)
	}
	return albedo, material, masked
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
