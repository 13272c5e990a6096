// Package game wires the streaming pipeline, the physics world and the
// climber into one runtime with a control loop and a dispatcher loop.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"cragsman/internal/avatar"
	"cragsman/internal/cache"
	"cragsman/internal/clinch"
	"cragsman/internal/collision"
	"cragsman/internal/config"
	"cragsman/internal/core"
	"cragsman/internal/logging"
	"cragsman/internal/physics"
	"cragsman/internal/render"
	"cragsman/internal/terrain"
	"cragsman/internal/trace"
	"cragsman/internal/world"
)

// Game owns every runtime component. Step and the fields it touches belong
// to the control goroutine.
type Game struct {
	cfg     *config.Config
	session string
	log     *logrus.Entry

	oracle     *terrain.Oracle
	payloads   *cache.Payloads
	registry   *world.Registry
	structure  *collision.Structure
	renderer   *render.Headless
	names      *render.Names
	generator  *world.Generator
	dispatcher *world.Dispatcher
	controller *world.Controller
	tracer     *trace.TileLogger

	bodies   *physics.World
	sim      *physics.Simulation
	field    *clinch.Field
	climber  *avatar.Avatar
	boulders *Boulders

	tick     uint64
	player   mgl64.Vec3
	maxTicks uint64
	cancel   context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// Stats is a snapshot for logging and tests.
type Stats struct {
	Tick      uint64
	Tiles     map[world.Status]int
	Bodies    int
	Springs   int
	Clinches  int
	Boulders  int
	Generated int64
	Cached    int64
	Failed    int64
	Assets    render.Stats
}

// New builds the runtime from cfg. A zero terrain seed is replaced by a
// random one.
func New(cfg *config.Config, logger *logrus.Logger) (*Game, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := *cfg
	if c.Terrain.Seed == 0 {
		c.Terrain.Seed = time.Now().UnixNano()
	}
	session := uuid.NewString()
	log := logger.WithField("session", session)
	log.WithField("seed", c.Terrain.Seed).Info("starting runtime")

	g := &Game{
		cfg:     &c,
		session: session,
		log:     log,
		oracle:  terrain.NewOracle(c.Terrain.Seed),
		names:   &render.Names{},
	}

	payloads, err := cache.New(c.Cache)
	if err != nil {
		return nil, fmt.Errorf("payload cache: %w", err)
	}
	g.payloads = payloads
	var payloadCache world.PayloadCache
	if payloads != nil {
		payloadCache = payloads
	}

	g.renderer, err = render.NewHeadless(logging.Component(log, "render"))
	if err != nil {
		g.closeResources()
		return nil, fmt.Errorf("renderer: %w", err)
	}

	g.registry = world.NewRegistry(c.Streaming.PoolSize, logging.Component(log, "registry"))
	if c.Trace.Dir != "" {
		g.tracer = trace.NewTileLogger(c.Trace.Dir, session, logging.Component(log, "trace"))
		g.registry.SetObserver(g.tracer)
	}

	g.structure = collision.NewStructure(c.Terrain.TileLength)
	synth := terrain.NewSynthesizer(c.Terrain, g.oracle)
	g.generator = world.NewGenerator(g.registry, synth, payloadCache, c.Streaming, c.Terrain.TileLength, logging.Component(log, "generator"))
	g.dispatcher = world.NewDispatcher(g.registry, g.renderer, g.names, c.Control.UploadsPerFrame, logging.Component(log, "dispatcher"))
	g.controller = world.NewController(g.registry, c.Streaming, c.Terrain.TileLength, g.renderer, g.structure, g.generator, logging.Component(log, "streaming"))

	g.bodies = physics.NewWorld()
	g.sim = physics.NewSimulation(g.bodies, c.Physics, c.Control.TickRate.Duration(), g.structure, g.oracle, c.Terrain.Seed, logging.Component(log, "physics"))
	g.field = clinch.NewField(c.Clinches, c.Terrain.Seed, g.oracle, g.bodies, g.structure, logging.Component(log, "clinches"))
	g.boulders = NewBoulders(c.Boulders, g.bodies, g.oracle, c.Terrain.Seed, logging.Component(log, "boulders"))
	g.sim.OnRemove(g.boulders.Forget)
	return g, nil
}

// SetMaxTicks makes Run start draining after n control ticks. Zero runs until
// the context ends.
func (g *Game) SetMaxTicks(n uint64) { g.maxTicks = n }

// Session returns the id attached to every log line of this run.
func (g *Game) Session() string { return g.session }

// Seed returns the terrain seed in use.
func (g *Game) Seed() int64 { return g.cfg.Terrain.Seed }

// Avatar returns the climber, or nil before enough clinches are loaded.
func (g *Game) Avatar() *avatar.Avatar { return g.climber }

// Run starts the workers, then runs the control and dispatcher loops until
// ctx ends and the tile pool is drained.
func (g *Game) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	defer cancel()

	g.generator.Start()

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	var grp errgroup.Group
	grp.Go(func() error {
		return g.runDispatcher(dispatchCtx)
	})
	grp.Go(func() error {
		defer stopDispatch()
		defer g.generator.Stop()
		loop := newControlLoop(g, g.cfg.Control.TickRate.Duration(), g.cfg.Control.DrainTimeout.Duration())
		return loop.Run(ctx)
	})

	err := grp.Wait()
	if errors.Is(err, ErrDrainTimeout) {
		g.log.WithField("tiles", g.registry.Counts()).Warn("shutdown before all tiles drained")
		err = nil
	}
	g.logStats()
	return errors.Join(err, g.Close())
}

func (g *Game) runDispatcher(ctx context.Context) error {
	ticker := time.NewTicker(g.cfg.Control.DispatchRate.Duration())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			g.dispatcher.Frame()
		}
	}
}

func (g *Game) controlTick(delta time.Duration, stopping bool) bool {
	return g.Step(delta, stopping)
}

// Step runs one control tick and reports whether the tile pool is drained.
func (g *Game) Step(delta time.Duration, stopping bool) bool {
	if g.climber != nil {
		if pos, ok := g.climber.Position(); ok {
			g.player = pos
		}
	}
	ctx := core.WorldContext{
		Tick:           g.tick,
		Delta:          delta,
		PlayerPosition: g.player,
		Stopping:       stopping,
		Log:            g.log.WithField("tick", g.tick),
	}

	if stopping {
		g.controller.Stop()
	}
	g.controller.Update(ctx)
	if !stopping {
		g.field.Update(ctx)
		g.ensureAvatar(ctx)
		if g.climber != nil {
			g.climber.Update(ctx)
			g.boulders.Update(ctx)
		}
	}
	g.sim.Update(ctx)

	g.tick++
	if g.maxTicks > 0 && g.tick >= g.maxTicks && g.cancel != nil {
		g.cancel()
	}
	return stopping && g.controller.Drained()
}

func (g *Game) ensureAvatar(ctx core.WorldContext) {
	if g.climber != nil {
		return
	}
	a, err := avatar.New(g.cfg.Avatar, g.cfg.Clinches, g.bodies, g.field, g.oracle, g.structure, logging.Component(g.log, "avatar"))
	if errors.Is(err, avatar.ErrNotEnoughClinches) {
		return
	}
	if err != nil {
		ctx.Logger().WithError(err).Error("avatar setup failed")
		return
	}
	g.climber = a
	ctx.Logger().Info("avatar ready")
}

// Stats returns a snapshot of the runtime counters.
func (g *Game) Stats() Stats {
	generated, cached, failed := g.generator.Stats()
	return Stats{
		Tick:      g.tick,
		Tiles:     g.registry.Counts(),
		Bodies:    g.bodies.BodyCount(),
		Springs:   g.bodies.SpringCount(),
		Clinches:  g.field.Len(),
		Boulders:  g.boulders.Live(),
		Generated: generated,
		Cached:    cached,
		Failed:    failed,
		Assets:    g.renderer.Stats(),
	}
}

func (g *Game) logStats() {
	s := g.Stats()
	g.log.WithFields(logrus.Fields{
		"ticks":     s.Tick,
		"generated": s.Generated,
		"cached":    s.Cached,
		"failed":    s.Failed,
		"bodies":    s.Bodies,
		"assets":    humanize.Comma(int64(s.Assets.Assets)),
	}).Info("runtime stopped")
	g.renderer.LogStats()
}

// Close releases the trace file, the cache and the renderer. It is safe to
// call more than once.
func (g *Game) Close() error {
	g.closeOnce.Do(func() {
		g.closeErr = g.closeResources()
	})
	return g.closeErr
}

func (g *Game) closeResources() error {
	var errs []error
	if g.tracer != nil {
		errs = append(errs, g.tracer.Close())
	}
	if g.payloads != nil {
		g.payloads.Close()
	}
	if g.renderer != nil {
		errs = append(errs, g.renderer.Close())
	}
	return errors.Join(errs...)
}
