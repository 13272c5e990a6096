package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"

	"cragsman/internal/collision"
	"cragsman/internal/config"
	"cragsman/internal/core"
)

// TickReport summarizes one controller update.
type TickReport struct {
	Needed   int
	Evicted  int
	Promoted int
	Claimed  int
	Missing  int
}

// Controller drives the control-thread side of the tile lifecycle: it claims
// slots for demanded tiles, promotes uploaded tiles into the world and evicts
// tiles that fell behind.
type Controller struct {
	reg        *Registry
	cfg        config.StreamingConfig
	tileLength float64
	renderer   Renderer
	colliders  Colliders
	waker      Waker
	log        *logrus.Entry

	stopping bool
}

func NewController(reg *Registry, cfg config.StreamingConfig, tileLength float64, renderer Renderer, colliders Colliders, waker Waker, log *logrus.Entry) *Controller {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Controller{
		reg:        reg,
		cfg:        cfg,
		tileLength: tileLength,
		renderer:   renderer,
		colliders:  colliders,
		waker:      waker,
		log:        log,
	}
}

// Stop stops demand; subsequent updates evict every Ready tile.
func (c *Controller) Stop() {
	c.stopping = true
}

// Drained reports whether every slot has returned to Init.
func (c *Controller) Drained() bool {
	return c.reg.AllInit()
}

// Update runs one control tick.
func (c *Controller) Update(ctx core.WorldContext) TickReport {
	stopping := c.stopping || ctx.Stopping
	player := ctx.PlayerPosition

	var needed map[TilePos]struct{}
	if stopping {
		needed = map[TilePos]struct{}{}
	} else {
		needed = Demand(player, c.tileLength, c.cfg.LoadRadius, c.cfg.DemandWindow)
	}
	report := TickReport{Needed: len(needed)}

	for _, t := range c.reg.Tiles() {
		if t.Status() != StatusInit {
			delete(needed, t.pos)
		}
	}

	changed := false
	for _, t := range c.reg.Tiles() {
		if t.Status() != StatusReady {
			continue
		}
		if !stopping && t.pos.DistanceTo(player, c.tileLength) <= c.cfg.UnloadRadius {
			continue
		}
		c.evict(t)
		report.Evicted++
		changed = true
	}

	for _, t := range c.reg.Tiles() {
		if t.Status() != StatusEntity {
			continue
		}
		if c.promote(t) {
			report.Promoted++
			changed = true
		}
	}

	if len(needed) > 0 {
		report.Claimed = c.claim(needed)
		if c.waker != nil {
			c.waker.SetPlayer(player)
			if report.Claimed > 0 {
				c.waker.Notify()
			}
		}
	}
	report.Missing = len(needed)
	if report.Missing > 0 {
		c.log.WithFields(logrus.Fields{"missing": report.Missing, "pool": c.reg.Len()}).Warn("tile pool exhausted")
	}

	if changed && c.colliders != nil {
		c.colliders.Rebuild()
	}
	return report
}

// claim assigns free slots to needs in row-major order and removes every
// satisfied need from the set.
func (c *Controller) claim(needed map[TilePos]struct{}) int {
	tiles := c.reg.Tiles()
	next := 0
	claimed := 0
	for _, pos := range sortedPositions(needed) {
		for next < len(tiles) && tiles[next].Status() != StatusInit {
			next++
		}
		if next == len(tiles) {
			break
		}
		t := tiles[next]
		t.pos = pos
		if !c.reg.mustTransition(t, StatusInit, StatusGenerate) {
			next++
			continue
		}
		delete(needed, pos)
		claimed++
		next++
	}
	return claimed
}

func (c *Controller) promote(t *Tile) bool {
	if t.payload == nil || t.payload.Collider == nil {
		c.log.WithField("tile", t.index).Error("entity tile without collider")
		return false
	}
	if c.colliders != nil {
		c.colliders.Update(t.colliderID(), collision.ColliderShape(t.payload.Collider), mgl64.Vec3{}, collision.LayerTerrain)
	}
	center := t.pos.Center(c.tileLength)
	t.entity = c.renderer.CreateEntity(mgl64.Vec3{center.X(), center.Y(), 0}, t.names.Object)
	return c.reg.mustTransition(t, StatusEntity, StatusReady)
}

func (c *Controller) evict(t *Tile) {
	for _, name := range []uint32{t.names.Object, t.names.Mesh, t.names.Albedo, t.names.Material} {
		if name != 0 {
			c.renderer.Unpublish(name)
		}
	}
	if c.colliders != nil {
		c.colliders.Remove(t.colliderID())
	}
	c.renderer.DestroyEntity(t.entity)
	t.entity = 0
	t.names = AssetNames{}
	t.payload = nil
	c.reg.mustTransition(t, StatusReady, StatusInit)
}
