// Package avatar builds the climber: a body with spring-jointed arms whose
// hands hold clinches or follow the cursor.
package avatar

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"

	"cragsman/internal/clinch"
	"cragsman/internal/collision"
	"cragsman/internal/config"
	"cragsman/internal/core"
	"cragsman/internal/geom"
	"cragsman/internal/physics"
)

const (
	BodyRadius     = 3.0
	ShoulderRadius = 2.3067 / 2
	ElbowRadius    = 2.56723 / 2
	HandRadius     = 1.1

	// rest lengths of the arm segments
	bodyShoulderRest  = 4.0
	shoulderElbowRest = 7.0
	elbowHandRest     = 10.0
	armStiffness      = 0.05
	armDamping        = 0.1

	jointStiffness = 0.3
	jointDamping   = 0.3

	handSpread = 20.0
)

var ErrNotEnoughClinches = errors.New("not enough clinches to start")

// HeightField is the terrain height used to keep the cursor on the surface.
type HeightField interface {
	HeightAt(p mgl64.Vec2) float64
}

// RayCaster finds terrain hits for aiming.
type RayCaster interface {
	QueryRay(line geom.Line, mask collision.Layer) (collision.Hit, bool)
}

// Arm is one shoulder-elbow-hand chain. Joint binds the hand to a clinch or
// to the cursor.
type Arm struct {
	Shoulder physics.BodyID
	Elbow    physics.BodyID
	Hand     physics.BodyID
	Joint    physics.SpringID
}

type Avatar struct {
	cfg          config.AvatarConfig
	clinchOffset float64
	bodies       *physics.World
	field        *clinch.Field
	heights      HeightField
	rays         RayCaster
	log          *logrus.Entry

	body    physics.BodyID
	cursor  physics.BodyID
	arms    []Arm
	current int
}

// SphereVolume is the mass of a unit-density sphere.
func SphereVolume(r float64) float64 {
	return 4 * math.Pi * r * r * r / 3
}

// New builds the avatar around the origin. Hand 0 follows the cursor, the
// other hands hold the clinches nearest to the origin.
func New(cfg config.AvatarConfig, clinches config.ClinchConfig, bodies *physics.World, field *clinch.Field, heights HeightField, rays RayCaster, log *logrus.Entry) (*Avatar, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	initial, ok := field.Initial(cfg.Hands)
	if !ok {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrNotEnoughClinches, cfg.Hands, field.Len())
	}

	a := &Avatar{
		cfg:          cfg,
		clinchOffset: clinches.TerrainOffset,
		bodies:       bodies,
		field:        field,
		heights:      heights,
		rays:         rays,
		log:          log,
	}

	var err error
	a.body, err = a.addPart(mgl64.Vec2{}, BodyRadius)
	if err != nil {
		return nil, err
	}
	a.cursor, err = bodies.AddBody(physics.Body{Kind: physics.Static, Position: a.surface(a.handStart(0), a.clinchOffset)})
	if err != nil {
		return nil, err
	}

	for i := 0; i < cfg.Hands; i++ {
		arm, err := a.addArm(i)
		if err != nil {
			return nil, fmt.Errorf("arm %d: %w", i, err)
		}
		target := a.cursor
		if i > 0 {
			target = initial[i].Body
		}
		arm.Joint, err = bodies.AddSpring(arm.Hand, target, 0, jointStiffness, jointDamping)
		if err != nil {
			return nil, fmt.Errorf("arm %d joint: %w", i, err)
		}
		a.arms = append(a.arms, arm)
	}
	return a, nil
}

func (a *Avatar) handStart(i int) mgl64.Vec2 {
	angle := float64(i) / float64(a.cfg.Hands) * 2 * math.Pi
	return mgl64.Vec2{math.Cos(angle), math.Sin(angle)}.Mul(handSpread)
}

func (a *Avatar) surface(xy mgl64.Vec2, offset float64) mgl64.Vec3 {
	return mgl64.Vec3{xy[0], xy[1], a.heights.HeightAt(xy) + offset}
}

func (a *Avatar) addPart(xy mgl64.Vec2, radius float64) (physics.BodyID, error) {
	return a.bodies.AddBody(physics.Body{
		Kind:            physics.Dynamic,
		Position:        a.surface(xy, radius),
		Mass:            SphereVolume(radius),
		CollisionRadius: radius,
	})
}

// addArm lays the arm out along the direction of its starting hand so the
// springs start near their rest lengths.
func (a *Avatar) addArm(i int) (Arm, error) {
	hand := a.handStart(i)
	dir := hand.Normalize()
	var arm Arm
	var err error
	if arm.Shoulder, err = a.addPart(dir.Mul(bodyShoulderRest), ShoulderRadius); err != nil {
		return arm, err
	}
	if arm.Elbow, err = a.addPart(dir.Mul(bodyShoulderRest+shoulderElbowRest), ElbowRadius); err != nil {
		return arm, err
	}
	if arm.Hand, err = a.addPart(hand, HandRadius); err != nil {
		return arm, err
	}
	links := []struct {
		from, to physics.BodyID
		rest     float64
	}{
		{a.body, arm.Shoulder, bodyShoulderRest},
		{arm.Shoulder, arm.Elbow, shoulderElbowRest},
		{arm.Elbow, arm.Hand, elbowHandRest},
	}
	for _, l := range links {
		if _, err := a.bodies.AddSpring(l.from, l.to, l.rest, armStiffness, armDamping); err != nil {
			return arm, err
		}
	}
	return arm, nil
}

// Body returns the avatar body id.
func (a *Avatar) Body() physics.BodyID { return a.body }

// Cursor returns the static body the free hand follows.
func (a *Avatar) Cursor() physics.BodyID { return a.cursor }

// Arms returns a copy of the arm layout.
func (a *Avatar) Arms() []Arm { return append([]Arm(nil), a.arms...) }

// CurrentHand returns the index of the hand following the cursor.
func (a *Avatar) CurrentHand() int { return a.current }

// Position returns the body position, the player position for streaming.
func (a *Avatar) Position() (mgl64.Vec3, bool) {
	b, ok := a.bodies.Body(a.body)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return b.Position, true
}

// Holding returns the body the hand's joint is attached to.
func (a *Avatar) Holding(hand int) (physics.BodyID, bool) {
	if hand < 0 || hand >= len(a.arms) {
		return 0, false
	}
	s, ok := a.bodies.Spring(a.arms[hand].Joint)
	if !ok {
		return 0, false
	}
	return s.B, true
}

// SetCursor moves the cursor towards target, at most MaxCursorDistance from
// the body, resting just above the terrain.
func (a *Avatar) SetCursor(target mgl64.Vec3) (mgl64.Vec3, bool) {
	if !geom.Finite(target) {
		return mgl64.Vec3{}, false
	}
	body, ok := a.Position()
	if !ok {
		return mgl64.Vec3{}, false
	}
	if d := target.Sub(body); d.Len() > a.cfg.MaxCursorDistance {
		target = body.Add(d.Normalize().Mul(a.cfg.MaxCursorDistance))
	}
	target = a.surface(mgl64.Vec2{target[0], target[1]}, a.clinchOffset)
	cursor, ok := a.bodies.Body(a.cursor)
	if !ok {
		return mgl64.Vec3{}, false
	}
	cursor.Position = target
	return target, true
}

// Grab attaches the current hand to the nearest free clinch within reach and
// frees the next hand. It reports whether a clinch was taken.
func (a *Avatar) Grab() (bool, error) {
	hand, ok := a.bodies.Body(a.arms[a.current].Hand)
	if !ok {
		return false, fmt.Errorf("hand %d: %w", a.current, physics.ErrUnknownBody)
	}
	c, ok := a.field.Nearest(hand.Position, a.cfg.GrabRadius)
	if !ok {
		return false, nil
	}
	for i := range a.arms {
		if held, _ := a.Holding(i); held == c.Body {
			return false, nil
		}
	}
	if err := a.bodies.RebindSpring(a.arms[a.current].Joint, c.Body); err != nil {
		return false, err
	}
	a.log.WithFields(logrus.Fields{"hand": a.current, "clinch": c.Body}).Debug("grabbed clinch")
	a.current = (a.current + 1) % len(a.arms)
	if err := a.bodies.RebindSpring(a.arms[a.current].Joint, a.cursor); err != nil {
		return true, err
	}
	return true, nil
}

// Release lets go of whatever hand holds and makes it follow the cursor.
func (a *Avatar) Release(hand int) error {
	if hand < 0 || hand >= len(a.arms) {
		return fmt.Errorf("hand %d out of range", hand)
	}
	return a.bodies.RebindSpring(a.arms[hand].Joint, a.cursor)
}

// AimRay returns the terrain point under line: the nearest collider hit, or
// the z=0 plane crossing lifted onto the height field.
func (a *Avatar) AimRay(line geom.Line) (mgl64.Vec3, bool) {
	if a.rays != nil {
		if hit, ok := a.rays.QueryRay(line, collision.LayerTerrain); ok {
			return hit.Point, true
		}
	}
	p, ok := line.IntersectPlaneZ(0)
	if !ok {
		return mgl64.Vec3{}, false
	}
	p[2] = a.heights.HeightAt(mgl64.Vec2{p[0], p[1]})
	return p, true
}

// Update orients each hand away from its elbow.
func (a *Avatar) Update(ctx core.WorldContext) {
	up := mgl64.Vec3{0, 0, 1}
	for _, arm := range a.arms {
		hand, ok1 := a.bodies.Body(arm.Hand)
		elbow, ok2 := a.bodies.Body(arm.Elbow)
		if !ok1 || !ok2 {
			continue
		}
		dir := hand.Position.Sub(elbow.Position)
		if dir.Len() < 1e-6 || math.Abs(geom.SafeNormalize(dir).Dot(up)) > 0.999 {
			continue
		}
		q := mgl64.QuatLookAtV(elbow.Position, hand.Position, up)
		if geom.Finite(q.V) && !math.IsNaN(q.W) {
			hand.Orientation = q
		}
	}
}
