// Package render provides an in-memory renderer used by the headless
// runtime and tests. Published assets are stored msgpack-encoded and zstd
// compressed, the way a real backend would hold staged upload buffers.
package render

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"cragsman/internal/terrain"
	"cragsman/internal/world"
)

var (
	ErrZeroName      = errors.New("asset name 0 is reserved")
	ErrNameInUse     = errors.New("asset name already published")
	ErrUnknownAsset  = errors.New("asset not published")
	ErrWrongKind     = errors.New("asset has a different kind")
	ErrInvalidAssets = errors.New("invalid asset data")
)

type assetKind uint8

const (
	kindTexture assetKind = iota + 1
	kindMesh
	kindObject
)

type asset struct {
	kind assetKind
	blob []byte
	raw  int
}

type entity struct {
	translation mgl64.Vec3
	object      uint32
}

type textureWire struct {
	Width    int    `msgpack:"w"`
	Height   int    `msgpack:"h"`
	Channels int    `msgpack:"c"`
	Pix      []byte `msgpack:"p"`
}

type meshWire struct {
	Resolution int       `msgpack:"r"`
	Positions  []float32 `msgpack:"pos"`
	Normals    []float32 `msgpack:"nrm"`
	UVs        []float32 `msgpack:"uv"`
	Indices    []uint32  `msgpack:"idx"`
}

// Stats summarizes the renderer contents.
type Stats struct {
	Assets           int
	Entities         int
	CompressedBytes  int64
	RawBytes         int64
	PublishedTotal   int64
	UnpublishedTotal int64
}

// Headless implements world.Renderer in memory.
type Headless struct {
	mu         sync.Mutex
	assets     map[uint32]asset
	entities   map[world.EntityID]entity
	nextEntity world.EntityID
	stats      Stats

	enc *zstd.Encoder
	dec *zstd.Decoder
	log *logrus.Entry
}

func NewHeadless(log *logrus.Entry) (*Headless, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Headless{
		assets:   make(map[uint32]asset),
		entities: make(map[world.EntityID]entity),
		enc:      enc,
		dec:      dec,
		log:      log,
	}, nil
}

// Close releases the codecs.
func (h *Headless) Close() error {
	h.dec.Close()
	return h.enc.Close()
}

func (h *Headless) PublishTexture(name uint32, img *terrain.Image) error {
	if img == nil || len(img.Pix) != img.Width*img.Height*img.Channels {
		return ErrInvalidAssets
	}
	return h.publish(name, kindTexture, textureWire{
		Width:    img.Width,
		Height:   img.Height,
		Channels: img.Channels,
		Pix:      img.Pix,
	})
}

func (h *Headless) PublishMesh(name uint32, mesh *terrain.Mesh) error {
	if mesh == nil {
		return ErrInvalidAssets
	}
	w := meshWire{
		Resolution: mesh.Resolution,
		Positions:  make([]float32, 0, len(mesh.Positions)*3),
		Normals:    make([]float32, 0, len(mesh.Normals)*3),
		UVs:        make([]float32, 0, len(mesh.UVs)*2),
		Indices:    mesh.Indices,
	}
	for _, p := range mesh.Positions {
		w.Positions = append(w.Positions, float32(p[0]), float32(p[1]), float32(p[2]))
	}
	for _, n := range mesh.Normals {
		w.Normals = append(w.Normals, float32(n[0]), float32(n[1]), float32(n[2]))
	}
	for _, uv := range mesh.UVs {
		w.UVs = append(w.UVs, float32(uv[0]), float32(uv[1]))
	}
	return h.publish(name, kindMesh, w)
}

func (h *Headless) PublishRenderObject(name uint32, obj world.RenderObject) error {
	h.mu.Lock()
	for _, dep := range []uint32{obj.Mesh, obj.Albedo, obj.Material} {
		if _, ok := h.assets[dep]; !ok {
			h.mu.Unlock()
			return fmt.Errorf("render object %d references %d: %w", name, dep, ErrUnknownAsset)
		}
	}
	h.mu.Unlock()
	return h.publish(name, kindObject, obj)
}

func (h *Headless) publish(name uint32, kind assetKind, v any) error {
	if name == 0 {
		return ErrZeroName
	}
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode asset %d: %w", name, err)
	}
	blob := h.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.assets[name]; ok {
		return fmt.Errorf("asset %d: %w", name, ErrNameInUse)
	}
	h.assets[name] = asset{kind: kind, blob: blob, raw: len(raw)}
	h.stats.CompressedBytes += int64(len(blob))
	h.stats.RawBytes += int64(len(raw))
	h.stats.PublishedTotal++
	return nil
}

func (h *Headless) Unpublish(name uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.assets[name]
	if !ok {
		return
	}
	delete(h.assets, name)
	h.stats.CompressedBytes -= int64(len(a.blob))
	h.stats.RawBytes -= int64(a.raw)
	h.stats.UnpublishedTotal++
}

func (h *Headless) CreateEntity(translation mgl64.Vec3, object uint32) world.EntityID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextEntity++
	h.entities[h.nextEntity] = entity{translation: translation, object: object}
	return h.nextEntity
}

func (h *Headless) DestroyEntity(id world.EntityID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entities, id)
}

// EntityTranslation returns where entity id was placed.
func (h *Headless) EntityTranslation(id world.EntityID) (mgl64.Vec3, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entities[id]
	return e.translation, ok
}

// Texture decodes a published texture.
func (h *Headless) Texture(name uint32) (*terrain.Image, error) {
	var w textureWire
	if err := h.decode(name, kindTexture, &w); err != nil {
		return nil, err
	}
	return &terrain.Image{Width: w.Width, Height: w.Height, Channels: w.Channels, Pix: w.Pix}, nil
}

// Mesh decodes a published mesh. Coordinates come back at float32 precision.
func (h *Headless) Mesh(name uint32) (*terrain.Mesh, error) {
	var w meshWire
	if err := h.decode(name, kindMesh, &w); err != nil {
		return nil, err
	}
	mesh := &terrain.Mesh{Resolution: w.Resolution, Indices: w.Indices}
	for i := 0; i+2 < len(w.Positions); i += 3 {
		mesh.Positions = append(mesh.Positions, mgl64.Vec3{float64(w.Positions[i]), float64(w.Positions[i+1]), float64(w.Positions[i+2])})
	}
	for i := 0; i+2 < len(w.Normals); i += 3 {
		mesh.Normals = append(mesh.Normals, mgl64.Vec3{float64(w.Normals[i]), float64(w.Normals[i+1]), float64(w.Normals[i+2])})
	}
	for i := 0; i+1 < len(w.UVs); i += 2 {
		mesh.UVs = append(mesh.UVs, mgl64.Vec2{float64(w.UVs[i]), float64(w.UVs[i+1])})
	}
	return mesh, nil
}

// RenderObject decodes a published render object.
func (h *Headless) RenderObject(name uint32) (world.RenderObject, error) {
	var obj world.RenderObject
	err := h.decode(name, kindObject, &obj)
	return obj, err
}

func (h *Headless) decode(name uint32, kind assetKind, out any) error {
	h.mu.Lock()
	a, ok := h.assets[name]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("asset %d: %w", name, ErrUnknownAsset)
	}
	if a.kind != kind {
		return fmt.Errorf("asset %d: %w", name, ErrWrongKind)
	}
	raw, err := h.dec.DecodeAll(a.blob, nil)
	if err != nil {
		return fmt.Errorf("decompress asset %d: %w", name, err)
	}
	if err := msgpack.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode asset %d: %w", name, err)
	}
	return nil
}

// Stats returns a snapshot of the renderer counters.
func (h *Headless) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.stats
	s.Assets = len(h.assets)
	s.Entities = len(h.entities)
	return s
}

// LogStats writes the current counters at info level.
func (h *Headless) LogStats() {
	s := h.Stats()
	h.log.WithFields(logrus.Fields{
		"assets":      s.Assets,
		"entities":    s.Entities,
		"stored":      humanize.Bytes(uint64(s.CompressedBytes)),
		"raw":         humanize.Bytes(uint64(s.RawBytes)),
		"published":   s.PublishedTotal,
		"unpublished": s.UnpublishedTotal,
	}).Info("renderer state")
}
