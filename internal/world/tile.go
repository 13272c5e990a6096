package world

import (
	"sync/atomic"

	"cragsman/internal/terrain"
)

// AssetNames are the renderer names published for one tile. Zero means
// unassigned.
type AssetNames struct {
	Albedo   uint32
	Material uint32
	Mesh     uint32
	Object   uint32
}

// Tile is one slot of the streaming pool.
//
// Ownership follows the status: the controller writes pos while the slot is
// Init, the worker that moved it to Generating owns payload until Upload, the
// dispatcher owns names while Upload, and the controller owns everything in
// Entity and Ready. The atomic status orders those hand-offs.
type Tile struct {
	index  int
	status atomic.Int32

	pos     TilePos
	payload *terrain.Payload
	names   AssetNames
	entity  EntityID
}

// Index returns the slot index inside the registry.
func (t *Tile) Index() int { return t.index }

// Status loads the current status.
func (t *Tile) Status() Status { return Status(t.status.Load()) }

// Pos returns the assigned position. It is only meaningful when the status is
// not Init.
func (t *Tile) Pos() TilePos { return t.pos }

// Names returns the published asset names.
func (t *Tile) Names() AssetNames { return t.names }

// Entity returns the render entity of a Ready tile.
func (t *Tile) Entity() EntityID { return t.entity }

// Payload returns the synthesized payload, if any.
func (t *Tile) Payload() *terrain.Payload { return t.payload }

// colliderID is the collision structure key of the tile.
func (t *Tile) colliderID() uint64 {
	return uint64(t.index) + 1
}
