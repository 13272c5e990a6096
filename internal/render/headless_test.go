package render

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"cragsman/internal/terrain"
	"cragsman/internal/world"
)

func newTestHeadless(t *testing.T) *Headless {
	t.Helper()
	h, err := NewHeadless(nil)
	if err != nil {
		t.Fatalf("new headless: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestNamesAreNeverZero(t *testing.T) {
	var n Names
	n.next.Store(^uint32(0) - 1)
	seen := make(map[uint32]bool)
	for i := 0; i < 4; i++ {
		v := n.GenerateName()
		if v == 0 {
			t.Fatalf("generated the reserved name")
		}
		if seen[v] {
			t.Fatalf("name %d generated twice", v)
		}
		seen[v] = true
	}
}

func TestPublishAndDecode(t *testing.T) {
	h := newTestHeadless(t)

	img := terrain.NewImage(2, 2, 3)
	img.SetTexel(1, 1, 10, 20, 30)
	if err := h.PublishTexture(1, img); err != nil {
		t.Fatalf("publish texture: %v", err)
	}
	mesh := &terrain.Mesh{
		Resolution: 2,
		Positions:  []mgl64.Vec3{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1}},
		Normals:    []mgl64.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		UVs:        []mgl64.Vec2{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		Indices:    []uint32{2, 0, 1, 2, 1, 3},
	}
	if err := h.PublishMesh(2, mesh); err != nil {
		t.Fatalf("publish mesh: %v", err)
	}
	if err := h.PublishTexture(3, terrain.NewImage(2, 2, 2)); err != nil {
		t.Fatalf("publish material: %v", err)
	}
	obj := world.RenderObject{Mesh: 2, Albedo: 1, Material: 3}
	if err := h.PublishRenderObject(4, obj); err != nil {
		t.Fatalf("publish object: %v", err)
	}

	gotImg, err := h.Texture(1)
	if err != nil {
		t.Fatalf("decode texture: %v", err)
	}
	if px := gotImg.Texel(1, 1); px[0] != 10 || px[1] != 20 || px[2] != 30 {
		t.Fatalf("texel mismatch: %v", px)
	}
	gotMesh, err := h.Mesh(2)
	if err != nil {
		t.Fatalf("decode mesh: %v", err)
	}
	if len(gotMesh.Positions) != 4 || gotMesh.Positions[3] != (mgl64.Vec3{1, 1, 1}) || len(gotMesh.Indices) != 6 {
		t.Fatalf("mesh mismatch: %+v", gotMesh)
	}
	gotObj, err := h.RenderObject(4)
	if err != nil || gotObj != obj {
		t.Fatalf("object mismatch: %+v %v", gotObj, err)
	}
	if _, err := h.Mesh(1); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("expected wrong kind error, got %v", err)
	}

	stats := h.Stats()
	if stats.Assets != 4 || stats.CompressedBytes <= 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	h.LogStats()

	for _, name := range []uint32{4, 2, 1, 3} {
		h.Unpublish(name)
	}
	if s := h.Stats(); s.Assets != 0 || s.CompressedBytes != 0 || s.RawBytes != 0 {
		t.Fatalf("expected empty store, got %+v", s)
	}
}

func TestPublishRejectsBadNames(t *testing.T) {
	h := newTestHeadless(t)
	img := terrain.NewImage(1, 1, 1)
	if err := h.PublishTexture(0, img); !errors.Is(err, ErrZeroName) {
		t.Fatalf("expected zero name error, got %v", err)
	}
	if err := h.PublishTexture(5, img); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := h.PublishTexture(5, img); !errors.Is(err, ErrNameInUse) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
	if err := h.PublishRenderObject(6, world.RenderObject{Mesh: 99, Albedo: 5, Material: 5}); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected unknown dependency error, got %v", err)
	}
}

func TestEntities(t *testing.T) {
	h := newTestHeadless(t)
	id := h.CreateEntity(mgl64.Vec3{30, 60, 0}, 7)
	if at, ok := h.EntityTranslation(id); !ok || at != (mgl64.Vec3{30, 60, 0}) {
		t.Fatalf("entity placed at %v %v", at, ok)
	}
	h.DestroyEntity(id)
	if _, ok := h.EntityTranslation(id); ok {
		t.Fatalf("entity should be gone")
	}
}
