package game

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"

	"cragsman/internal/avatar"
	"cragsman/internal/config"
	"cragsman/internal/core"
	"cragsman/internal/physics"
	"cragsman/internal/terrain"
)

const (
	boulderSpread  = 200.0
	boulderAbove   = 300.0
	boulderDensity = 0.5
)

// Surface is the terrain the boulders roll over.
type Surface interface {
	HeightAt(p mgl64.Vec2) float64
	MaterialAt(p mgl64.Vec2, rockOnly bool) terrain.Material
}

// Boulder is a falling rock tinted like the wall where it spawned.
type Boulder struct {
	Body   physics.BodyID
	Radius float64
	Color  mgl64.Vec3
}

// Boulders occasionally drops rocks from above the player.
type Boulders struct {
	cfg     config.BoulderConfig
	bodies  *physics.World
	surface Surface
	rng     *rand.Rand
	log     *logrus.Entry
	live    map[physics.BodyID]*Boulder
}

func NewBoulders(cfg config.BoulderConfig, bodies *physics.World, surface Surface, seed int64, log *logrus.Entry) *Boulders {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Boulders{
		cfg:     cfg,
		bodies:  bodies,
		surface: surface,
		rng:     rand.New(rand.NewSource(seed ^ 0x5bd1e995)),
		log:     log,
		live:    make(map[physics.BodyID]*Boulder),
	}
}

// Update rolls the spawn chance and spins live boulders by their speed.
func (b *Boulders) Update(ctx core.WorldContext) {
	if b.cfg.Enabled && b.rng.Float64() < b.cfg.SpawnChance {
		if _, err := b.Spawn(ctx.PlayerPosition); err != nil {
			ctx.Logger().WithError(err).Warn("boulder spawn failed")
		}
	}
	for id := range b.live {
		body, ok := b.bodies.Body(id)
		if !ok {
			delete(b.live, id)
			continue
		}
		spin := mgl64.QuatRotate(mgl64.DegToRad(body.Velocity.Len()), mgl64.Vec3{1, 0, 0})
		body.Orientation = spin.Mul(body.Orientation).Normalize()
	}
}

// Spawn drops one boulder above player.
func (b *Boulders) Spawn(player mgl64.Vec3) (*Boulder, error) {
	radius := b.rng.Float64() + 1.5
	xy := mgl64.Vec2{player[0] + b.rng.Float64()*2*boulderSpread - boulderSpread, player[1] + boulderAbove}
	pos := mgl64.Vec3{xy[0], xy[1], b.surface.HeightAt(xy) + radius}
	id, err := b.bodies.AddBody(physics.Body{
		Kind:            physics.Dynamic,
		Position:        pos,
		Orientation:     b.randomOrientation(),
		Mass:            avatar.SphereVolume(radius) * boulderDensity,
		CollisionRadius: radius,
		TTL:             b.cfg.TTLTicks,
	})
	if err != nil {
		return nil, err
	}
	boulder := &Boulder{Body: id, Radius: radius, Color: b.surface.MaterialAt(xy, false).Color}
	b.live[id] = boulder
	b.log.WithFields(logrus.Fields{"body": id, "radius": radius}).Debug("boulder spawned")
	return boulder, nil
}

// Forget drops a destroyed body; wired to the simulation's removal hook.
func (b *Boulders) Forget(id physics.BodyID) {
	delete(b.live, id)
}

// Live returns the number of boulders in play.
func (b *Boulders) Live() int { return len(b.live) }

func (b *Boulders) randomOrientation() mgl64.Quat {
	axis := mgl64.Vec3{b.rng.NormFloat64(), b.rng.NormFloat64(), b.rng.NormFloat64()}
	if axis.Len() < 1e-9 {
		axis = mgl64.Vec3{0, 0, 1}
	}
	return mgl64.QuatRotate(b.rng.Float64()*2*math.Pi, axis.Normalize())
}
