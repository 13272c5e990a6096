package world

import (
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"

	"cragsman/internal/config"
)

// ConfigureLockDetection enables go-deadlock's lock order and timeout checks
// when timeout is positive and turns them off otherwise.
func ConfigureLockDetection(timeout time.Duration) {
	deadlock.Opts.Disable = timeout <= 0
	if timeout > 0 {
		deadlock.Opts.DeadlockTimeout = timeout
	}
}

// WorkerCount returns the number of generator workers for cfg.
func WorkerCount(cfg config.StreamingConfig) int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	n := runtime.NumCPU()
	if n < 2 {
		n = 2
	}
	return n - 1
}

// Generator runs the synthesis workers. Each worker picks the Generate tile
// nearest to the player under one selection mutex, synthesizes it without
// holding any lock and hands it to the dispatcher through the Upload status.
type Generator struct {
	reg        *Registry
	synth      Synthesizer
	cache      PayloadCache
	tileLength float64
	workers    int
	idle       time.Duration
	log        *logrus.Entry

	selectMu deadlock.Mutex
	wake     *notifier
	player   atomic.Pointer[mgl64.Vec3]
	stopped  atomic.Bool
	pool     pond.Pool

	generated atomic.Int64
	cached    atomic.Int64
	failed    atomic.Int64
}

func NewGenerator(reg *Registry, synth Synthesizer, cache PayloadCache, cfg config.StreamingConfig, tileLength float64, log *logrus.Entry) *Generator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	idle := cfg.IdlePoll.Duration()
	if idle <= 0 {
		idle = 10 * time.Millisecond
	}
	g := &Generator{
		reg:        reg,
		synth:      synth,
		cache:      cache,
		tileLength: tileLength,
		workers:    WorkerCount(cfg),
		idle:       idle,
		log:        log,
		wake:       newNotifier(),
	}
	g.player.Store(&mgl64.Vec3{})
	return g
}

// Workers returns the configured worker count.
func (g *Generator) Workers() int { return g.workers }

// Start launches the workers on a pond pool.
func (g *Generator) Start() {
	g.pool = pond.NewPool(g.workers)
	for i := 0; i < g.workers; i++ {
		id := i
		g.pool.Submit(func() {
			g.loop(id)
		})
	}
	g.log.WithField("workers", g.workers).Info("terrain generator started")
}

// Stop asks the workers to exit and waits for them. A synthesis in progress
// is allowed to finish.
func (g *Generator) Stop() {
	g.stopped.Store(true)
	g.wake.broadcast()
	if g.pool != nil {
		g.pool.StopAndWait()
	}
	g.log.WithFields(logrus.Fields{
		"generated": g.generated.Load(),
		"cached":    g.cached.Load(),
		"failed":    g.failed.Load(),
	}).Info("terrain generator stopped")
}

// Notify wakes idle workers.
func (g *Generator) Notify() {
	g.wake.broadcast()
}

// SetPlayer updates the position used to prioritize nearby tiles.
func (g *Generator) SetPlayer(pos mgl64.Vec3) {
	g.player.Store(&pos)
}

// Stats returns the number of synthesized, cache-served and failed tiles.
func (g *Generator) Stats() (generated, cached, failed int64) {
	return g.generated.Load(), g.cached.Load(), g.failed.Load()
}

func (g *Generator) loop(id int) {
	log := g.log.WithField("worker", id)
	log.Debug("generator worker running")
	for !g.stopped.Load() {
		wake := g.wake.wait()
		if g.Step() {
			continue
		}
		timer := time.NewTimer(g.idle)
		select {
		case <-wake:
		case <-timer.C:
		}
		timer.Stop()
	}
	log.Debug("generator worker exiting")
}

// Step processes at most one tile on the calling goroutine and reports
// whether it found work.
func (g *Generator) Step() bool {
	t := g.selectTile()
	if t == nil {
		return false
	}
	g.process(t)
	return true
}

func (g *Generator) selectTile() *Tile {
	g.selectMu.Lock()
	defer g.selectMu.Unlock()

	player := *g.player.Load()
	var best *Tile
	bestDist := math.Inf(1)
	for _, t := range g.reg.Tiles() {
		if t.Status() != StatusGenerate {
			continue
		}
		if d := t.pos.DistanceTo(player, g.tileLength); d < bestDist {
			best = t
			bestDist = d
		}
	}
	if best == nil {
		return nil
	}
	if !g.reg.mustTransition(best, StatusGenerate, StatusGenerating) {
		return nil
	}
	return best
}

func (g *Generator) process(t *Tile) {
	pos := t.pos
	defer func() {
		if r := recover(); r != nil {
			g.fail(t, fmt.Errorf("panic: %v", r))
		}
	}()

	if g.cache != nil {
		if payload, ok := g.cache.Get(pos); ok {
			t.payload = payload
			g.cached.Add(1)
			g.reg.mustTransition(t, StatusGenerating, StatusUpload)
			return
		}
	}

	start := time.Now()
	payload, err := g.synth.Synthesize(pos.X, pos.Y)
	if err != nil {
		g.fail(t, err)
		return
	}
	if g.cache != nil {
		g.cache.Set(pos, payload)
	}
	t.payload = payload
	g.generated.Add(1)
	g.log.WithFields(logrus.Fields{
		"tile":    pos.String(),
		"elapsed": time.Since(start),
		"masked":  payload.Masked,
	}).Debug("tile synthesized")
	g.reg.mustTransition(t, StatusGenerating, StatusUpload)
}

func (g *Generator) fail(t *Tile, err error) {
	g.failed.Add(1)
	t.payload = nil
	g.log.WithError(err).WithField("tile", t.pos.String()).Error("tile synthesis failed")
	g.reg.mustTransition(t, StatusGenerating, StatusInit)
}
