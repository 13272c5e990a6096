package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"cragsman/internal/collision"
	"cragsman/internal/terrain"
)

// EntityID identifies a render entity created by the Renderer.
type EntityID uint64

// RenderObject binds a mesh to its textures.
type RenderObject struct {
	Mesh     uint32
	Albedo   uint32
	Material uint32
}

// Renderer is the render-side sink for published assets and entities.
type Renderer interface {
	PublishTexture(name uint32, img *terrain.Image) error
	PublishMesh(name uint32, mesh *terrain.Mesh) error
	PublishRenderObject(name uint32, obj RenderObject) error
	Unpublish(name uint32)
	CreateEntity(translation mgl64.Vec3, object uint32) EntityID
	DestroyEntity(id EntityID)
}

// AssetRegistry hands out process-unique, non-zero asset names.
type AssetRegistry interface {
	GenerateName() uint32
}

// Synthesizer produces tile payloads; *terrain.Synthesizer implements it.
type Synthesizer interface {
	Synthesize(x, y int) (*terrain.Payload, error)
}

// PayloadCache keeps synthesized payloads for re-visited tiles.
type PayloadCache interface {
	Get(pos TilePos) (*terrain.Payload, bool)
	Set(pos TilePos, payload *terrain.Payload)
}

// Colliders is the subset of the collision structure the controller drives.
type Colliders interface {
	Update(id uint64, shape collision.Shape, translation mgl64.Vec3, layer collision.Layer)
	Remove(id uint64)
	Rebuild()
}

// Waker lets the controller hand work to the generator workers.
type Waker interface {
	Notify()
	SetPlayer(pos mgl64.Vec3)
}
