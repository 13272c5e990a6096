package physics

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"

	"cragsman/internal/collision"
	"cragsman/internal/config"
	"cragsman/internal/core"
	"cragsman/internal/geom"
)

const (
	bounceFactor   = 0.9
	pushFactor     = 2.0
	degenerateDist = 1e-5
)

// ContactSource answers sphere overlap queries against static geometry.
type ContactSource interface {
	QuerySphere(center mgl64.Vec3, radius float64, mask collision.Layer) []collision.Contact
}

// HeightField is the terrain height used by the penetration safety clamp.
type HeightField interface {
	HeightAt(p mgl64.Vec2) float64
}

// StepStats summarizes one Update call.
type StepStats struct {
	Passes   int
	Contacts int
	Clamped  int
	Restored int
	Removed  int
	Expired  int
}

// Simulation advances a World with fixed sub-steps.
type Simulation struct {
	world    *World
	cfg      config.PhysicsConfig
	dt       float64
	gravity  mgl64.Vec3
	contacts ContactSource
	terrain  HeightField
	rng      *rand.Rand
	log      *logrus.Entry

	accel    map[BodyID]mgl64.Vec3
	onRemove []func(BodyID)
}

// NewSimulation builds a solver for world. contacts and terrain may be nil,
// which disables collisions and the safety clamp respectively.
func NewSimulation(world *World, cfg config.PhysicsConfig, tick time.Duration, contacts ContactSource, terrain HeightField, seed int64, log *logrus.Entry) *Simulation {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	steps := cfg.RepeatSteps
	if steps < 2 {
		steps = 2
	}
	cfg.RepeatSteps = steps
	return &Simulation{
		world:    world,
		cfg:      cfg,
		dt:       tick.Seconds() / float64(steps),
		gravity:  mgl64.Vec3{cfg.Gravity[0], cfg.Gravity[1], cfg.Gravity[2]},
		contacts: contacts,
		terrain:  terrain,
		rng:      rand.New(rand.NewSource(seed)),
		log:      log,
		accel:    make(map[BodyID]mgl64.Vec3),
	}
}

func (s *Simulation) World() *World { return s.world }

// StepSeconds returns the length of one sub-step.
func (s *Simulation) StepSeconds() float64 { return s.dt }

// OnRemove registers fn to be called for each destroyed body.
func (s *Simulation) OnRemove(fn func(BodyID)) {
	s.onRemove = append(s.onRemove, fn)
}

// Update runs RepeatSteps passes. Expiring bodies count down once per call.
func (s *Simulation) Update(ctx core.WorldContext) StepStats {
	var stats StepStats
	for _, id := range s.world.bodyOrder {
		b := s.world.bodies[id]
		if b.TTL <= 0 {
			continue
		}
		b.TTL--
		if b.TTL == 0 {
			s.world.RemoveBody(id)
			stats.Expired++
		}
	}
	for i := 0; i < s.cfg.RepeatSteps; i++ {
		s.pass(ctx, &stats)
		stats.Passes++
	}
	return stats
}

func (s *Simulation) pass(ctx core.WorldContext, stats *StepStats) {
	clear(s.accel)
	s.applySprings()
	s.applyGravity()
	s.applyCollisions(stats)
	s.integrate(ctx, stats)
	for _, id := range s.world.flushRemovals() {
		stats.Removed++
		for _, fn := range s.onRemove {
			fn(id)
		}
	}
}

// addForce converts a force into acceleration. Static bodies ignore it.
func (s *Simulation) addForce(b *Body, f mgl64.Vec3) {
	if b.Kind == Static {
		return
	}
	s.accel[b.ID] = s.accel[b.ID].Add(f.Mul(1 / b.Mass))
}

func (s *Simulation) applySprings() {
	dt := s.dt
	for _, id := range s.world.springOrder {
		sp := s.world.springs[id]
		a, okA := s.world.bodies[sp.A]
		b, okB := s.world.bodies[sp.B]
		if !okA || !okB {
			continue
		}
		delta := b.Position.Sub(a.Position)
		var dir mgl64.Vec3
		if delta.LenSqr() <= degenerateDist {
			dir = s.randomDirection()
		} else {
			dir = delta.Normalize()
		}
		x := delta.Sub(dir.Mul(sp.RestDistance))
		v := b.Velocity.Sub(a.Velocity)
		m := reducedMass(a.EffectiveMass(), b.EffectiveMass())
		f := x.Mul(sp.Stiffness * m / (dt * dt)).Add(v.Mul(sp.Damping * m / dt))
		s.addForce(a, f)
		s.addForce(b, f.Mul(-1))
	}
}

func reducedMass(a, b float64) float64 {
	switch {
	case math.IsInf(a, 1):
		return b
	case math.IsInf(b, 1):
		return a
	default:
		return a * b / (a + b)
	}
}

func (s *Simulation) randomDirection() mgl64.Vec3 {
	for {
		v := mgl64.Vec3{s.rng.NormFloat64(), s.rng.NormFloat64(), s.rng.NormFloat64()}
		if l := v.Len(); l > 1e-9 {
			return v.Mul(1 / l)
		}
	}
}

func (s *Simulation) applyGravity() {
	for _, id := range s.world.bodyOrder {
		b := s.world.bodies[id]
		if b.Kind == Static {
			continue
		}
		s.accel[id] = s.accel[id].Add(s.gravity)
	}
}

func (s *Simulation) applyCollisions(stats *StepStats) {
	for _, id := range s.world.bodyOrder {
		b := s.world.bodies[id]
		if b.Kind == Static || b.CollisionRadius <= 0 {
			continue
		}
		r := b.CollisionRadius
		if s.terrain != nil {
			h := s.terrain.HeightAt(mgl64.Vec2{b.Position[0], b.Position[1]})
			if b.Position[2] < h-r*0.5 {
				b.Position[2] = h + r
				stats.Clamped++
			}
		}
		if s.contacts == nil {
			continue
		}
		for _, c := range s.contacts.QuerySphere(b.Position, r, collision.LayerTerrain) {
			n := c.Normal
			bounce := n.Mul(-2 * n.Dot(b.Velocity))
			offset := b.Position.Sub(c.Point)
			dist := c.Distance
			dir := geom.SafeNormalize(offset)
			// A center behind the face is pushed out along the face normal.
			if side := n.Dot(offset); side < 0 && n != (mgl64.Vec3{}) {
				dist = side
				dir = n
			}
			penetration := clamp(r-dist, 0, 1)
			push := dir.Mul(math.Pow(penetration+1, 3) - 1)
			f := bounce.Mul(bounceFactor).Add(push.Mul(pushFactor)).Mul(b.Mass)
			s.addForce(b, f)
			stats.Contacts++
		}
	}
}

func (s *Simulation) integrate(ctx core.WorldContext, stats *StepStats) {
	dt := s.dt
	damping := s.cfg.VelocityDamping
	for _, id := range s.world.bodyOrder {
		b := s.world.bodies[id]
		if b.Kind == Static {
			continue
		}
		v := b.Velocity.Mul(damping).Add(s.accel[id].Mul(dt))
		p := b.Position.Add(v.Mul(dt))
		if geom.Finite(v) && geom.Finite(p) {
			b.Velocity = v
			b.Position = p
			continue
		}
		msg := fmt.Sprintf("body %d reached non-finite state: position %v velocity %v", id, p, v)
		if s.cfg.Debug {
			panic(msg)
		}
		log := s.log
		if ctx.Log != nil {
			log = ctx.Log
		}
		log.WithField("body", id).Error(msg)
		// keep the last finite position
		if !geom.Finite(b.Position) {
			b.Position = mgl64.Vec3{}
		}
		b.Velocity = mgl64.Vec3{}
		stats.Restored++
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
