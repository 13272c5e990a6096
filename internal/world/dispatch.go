package world

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Dispatcher is the render-side role: it publishes uploaded payloads within
// a per-frame budget and hands the tiles back to the controller.
type Dispatcher struct {
	reg      *Registry
	renderer Renderer
	names    AssetRegistry
	budget   int
	log      *logrus.Entry
}

func NewDispatcher(reg *Registry, renderer Renderer, names AssetRegistry, budget int, log *logrus.Entry) *Dispatcher {
	if budget <= 0 {
		budget = 1
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Dispatcher{reg: reg, renderer: renderer, names: names, budget: budget, log: log}
}

// Frame publishes up to the budget of Upload tiles and returns how many moved
// to Entity.
func (d *Dispatcher) Frame() int {
	done := 0
	for _, t := range d.reg.Tiles() {
		if done >= d.budget {
			break
		}
		if t.Status() != StatusUpload {
			continue
		}
		if err := d.publish(t); err != nil {
			d.log.WithError(err).WithField("tile", t.pos.String()).Warn("tile upload failed, retrying next frame")
			continue
		}
		if d.reg.mustTransition(t, StatusUpload, StatusEntity) {
			done++
		}
	}
	return done
}

func (d *Dispatcher) publish(t *Tile) error {
	p := t.payload
	if p == nil || p.Mesh == nil || p.Albedo == nil || p.Material == nil {
		return fmt.Errorf("incomplete payload")
	}
	names := AssetNames{
		Albedo:   d.names.GenerateName(),
		Material: d.names.GenerateName(),
		Mesh:     d.names.GenerateName(),
		Object:   d.names.GenerateName(),
	}
	var published []uint32
	rollback := func(err error) error {
		for _, n := range published {
			d.renderer.Unpublish(n)
		}
		return err
	}

	if err := d.renderer.PublishTexture(names.Albedo, p.Albedo); err != nil {
		return rollback(fmt.Errorf("albedo: %w", err))
	}
	published = append(published, names.Albedo)
	if err := d.renderer.PublishTexture(names.Material, p.Material); err != nil {
		return rollback(fmt.Errorf("material: %w", err))
	}
	published = append(published, names.Material)
	if err := d.renderer.PublishMesh(names.Mesh, p.Mesh); err != nil {
		return rollback(fmt.Errorf("mesh: %w", err))
	}
	published = append(published, names.Mesh)
	obj := RenderObject{Mesh: names.Mesh, Albedo: names.Albedo, Material: names.Material}
	if err := d.renderer.PublishRenderObject(names.Object, obj); err != nil {
		return rollback(fmt.Errorf("render object: %w", err))
	}
	t.names = names
	return nil
}
