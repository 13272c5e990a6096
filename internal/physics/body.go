// Package physics simulates spring-connected point masses colliding with the
// streamed terrain.
package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrUnknownBody   = errors.New("unknown body")
	ErrUnknownSpring = errors.New("unknown spring")
	ErrStaticPair    = errors.New("spring between two static bodies")
	ErrInvalidBody   = errors.New("invalid body")
	ErrInvalidSpring = errors.New("invalid spring")
)

type BodyID uint64

type SpringID uint64

type BodyKind int

const (
	Static BodyKind = iota
	Dynamic
)

// Body is a point mass with an optional collision sphere. Static bodies have
// infinite mass and never move under forces.
type Body struct {
	ID              BodyID
	Kind            BodyKind
	Position        mgl64.Vec3
	Orientation     mgl64.Quat
	Velocity        mgl64.Vec3
	Mass            float64
	CollisionRadius float64 // 0 disables collisions
	TTL             int     // remaining ticks; 0 means unlimited
}

// InverseMass returns 0 for static bodies.
func (b *Body) InverseMass() float64 {
	if b.Kind == Static {
		return 0
	}
	return 1 / b.Mass
}

// EffectiveMass returns the mass used by the solver, +Inf for static bodies.
func (b *Body) EffectiveMass() float64 {
	if b.Kind == Static {
		return math.Inf(1)
	}
	return b.Mass
}

// Spring pulls B towards RestDistance from A.
type Spring struct {
	ID           SpringID
	A, B         BodyID
	RestDistance float64
	Stiffness    float64 // (0,1)
	Damping      float64 // (0,1)
}

// World stores bodies and springs. It is owned by the control thread.
type World struct {
	bodies      map[BodyID]*Body
	springs     map[SpringID]*Spring
	bodyOrder   []BodyID
	springOrder []SpringID
	nextBody    BodyID
	nextSpring  SpringID
	removals    *RemovalQueue
}

func NewWorld() *World {
	return &World{
		bodies:   make(map[BodyID]*Body),
		springs:  make(map[SpringID]*Spring),
		removals: NewRemovalQueue(),
	}
}

// AddBody copies def into the world and returns its id.
func (w *World) AddBody(def Body) (BodyID, error) {
	if def.Kind == Dynamic && (!(def.Mass > 0) || math.IsInf(def.Mass, 0)) {
		return 0, fmt.Errorf("%w: dynamic mass %v", ErrInvalidBody, def.Mass)
	}
	if def.CollisionRadius < 0 || math.IsNaN(def.CollisionRadius) {
		return 0, fmt.Errorf("%w: radius %v", ErrInvalidBody, def.CollisionRadius)
	}
	if def.Orientation == (mgl64.Quat{}) {
		def.Orientation = mgl64.QuatIdent()
	}
	w.nextBody++
	def.ID = w.nextBody
	b := def
	w.bodies[b.ID] = &b
	w.bodyOrder = append(w.bodyOrder, b.ID)
	return b.ID, nil
}

// Body returns the live body for id.
func (w *World) Body(id BodyID) (*Body, bool) {
	b, ok := w.bodies[id]
	return b, ok
}

// Spring returns the live spring for id.
func (w *World) Spring(id SpringID) (*Spring, bool) {
	s, ok := w.springs[id]
	return s, ok
}

// BodyCount returns the number of live bodies.
func (w *World) BodyCount() int { return len(w.bodies) }

// SpringCount returns the number of live springs.
func (w *World) SpringCount() int { return len(w.springs) }

// AddSpring connects a and b.
func (w *World) AddSpring(a, b BodyID, rest, stiffness, damping float64) (SpringID, error) {
	if rest < 0 || !(stiffness > 0 && stiffness < 1) || !(damping > 0 && damping < 1) {
		return 0, fmt.Errorf("%w: rest %v stiffness %v damping %v", ErrInvalidSpring, rest, stiffness, damping)
	}
	if err := w.checkPair(a, b); err != nil {
		return 0, err
	}
	w.nextSpring++
	s := &Spring{ID: w.nextSpring, A: a, B: b, RestDistance: rest, Stiffness: stiffness, Damping: damping}
	w.springs[s.ID] = s
	w.springOrder = append(w.springOrder, s.ID)
	return s.ID, nil
}

// RebindSpring moves endpoint B of spring id to body b, keeping the spring id.
func (w *World) RebindSpring(id SpringID, b BodyID) error {
	s, ok := w.springs[id]
	if !ok {
		return fmt.Errorf("spring %d: %w", id, ErrUnknownSpring)
	}
	if err := w.checkPair(s.A, b); err != nil {
		return err
	}
	s.B = b
	return nil
}

func (w *World) checkPair(a, b BodyID) error {
	ba, ok := w.bodies[a]
	if !ok {
		return fmt.Errorf("body %d: %w", a, ErrUnknownBody)
	}
	bb, ok := w.bodies[b]
	if !ok {
		return fmt.Errorf("body %d: %w", b, ErrUnknownBody)
	}
	if ba.Kind == Static && bb.Kind == Static {
		return fmt.Errorf("bodies %d and %d: %w", a, b, ErrStaticPair)
	}
	return nil
}

// RemoveSpring deletes a spring immediately.
func (w *World) RemoveSpring(id SpringID) {
	if _, ok := w.springs[id]; !ok {
		return
	}
	delete(w.springs, id)
	w.springOrder = removeID(w.springOrder, id)
}

// RemoveBody schedules id for destruction at the end of the next pass.
// Requesting the same removal twice is harmless.
func (w *World) RemoveBody(id BodyID) {
	w.removals.Enqueue(id)
}

// PendingRemovals returns the number of queued removal requests.
func (w *World) PendingRemovals() int {
	return w.removals.Len()
}

// flushRemovals destroys queued bodies and every spring attached to them.
func (w *World) flushRemovals() []BodyID {
	ids := w.removals.Drain()
	if len(ids) == 0 {
		return nil
	}
	removed := make([]BodyID, 0, len(ids))
	gone := make(map[BodyID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := w.bodies[id]; !ok {
			continue
		}
		delete(w.bodies, id)
		gone[id] = struct{}{}
		removed = append(removed, id)
	}
	if len(removed) == 0 {
		return nil
	}
	kept := w.bodyOrder[:0]
	for _, id := range w.bodyOrder {
		if _, ok := gone[id]; !ok {
			kept = append(kept, id)
		}
	}
	w.bodyOrder = kept

	keptSprings := w.springOrder[:0]
	for _, id := range w.springOrder {
		s := w.springs[id]
		_, aGone := gone[s.A]
		_, bGone := gone[s.B]
		if aGone || bGone {
			delete(w.springs, id)
			continue
		}
		keptSprings = append(keptSprings, id)
	}
	w.springOrder = keptSprings
	return removed
}

// Bodies returns live body ids in creation order.
func (w *World) Bodies() []BodyID {
	return append([]BodyID(nil), w.bodyOrder...)
}

// Springs returns live spring ids in creation order.
func (w *World) Springs() []SpringID {
	return append([]SpringID(nil), w.springOrder...)
}

func removeID[T comparable](ids []T, id T) []T {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
