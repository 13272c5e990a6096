package game

import (
	"context"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus/hooks/test"

	"cragsman/internal/config"
	"cragsman/internal/trace"
	"cragsman/internal/world"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Terrain.Seed = 11
	cfg.Terrain.MeshResolution = 9
	cfg.Terrain.TextureResolution = 8
	cfg.Streaming.PoolSize = 32
	cfg.Streaming.LoadRadius = 40
	cfg.Streaming.UnloadRadius = 80
	cfg.Streaming.Workers = 2
	cfg.Streaming.IdlePoll = config.Duration(2 * time.Millisecond)
	cfg.Control.TickRate = config.Duration(5 * time.Millisecond)
	cfg.Control.DispatchRate = config.Duration(2 * time.Millisecond)
	cfg.Control.DrainTimeout = config.Duration(5 * time.Second)
	cfg.Cache.Enabled = true
	cfg.Boulders.Enabled = false
	cfg.Trace.Dir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return cfg
}

func TestNewRejectsNilConfig(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Fatalf("expected an error for a nil config")
	}
}

func TestGameStreamsAndDrains(t *testing.T) {
	cfg := testConfig(t)
	logger, _ := test.NewNullLogger()
	g, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer g.Close()
	tick := cfg.Control.TickRate.Duration()

	g.generator.Start()
	deadline := time.Now().Add(10 * time.Second)
	for {
		g.Step(tick, false)
		g.dispatcher.Frame()
		s := g.Stats()
		if settled(s) && g.Avatar() != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("streaming did not settle:\n%s", spew.Sdump(s))
		}
		time.Sleep(time.Millisecond)
	}

	s := g.Stats()
	if s.Clinches == 0 || s.Bodies <= s.Clinches || s.Springs != 12 {
		t.Fatalf("unexpected world state:\n%s", spew.Sdump(s))
	}
	if s.Assets.Entities != s.Tiles[world.StatusReady] {
		t.Fatalf("expected one render entity per ready tile, got %d for %d", s.Assets.Entities, s.Tiles[world.StatusReady])
	}
	if s.Assets.Assets != 4*s.Tiles[world.StatusReady] {
		t.Fatalf("expected four assets per ready tile, got %d", s.Assets.Assets)
	}

	deadline = time.Now().Add(10 * time.Second)
	for !g.Step(tick, true) {
		g.dispatcher.Frame()
		if time.Now().After(deadline) {
			t.Fatalf("drain did not finish: %v", g.registry.Counts())
		}
		time.Sleep(time.Millisecond)
	}
	g.generator.Stop()

	s = g.Stats()
	if s.Assets.Entities != 0 || s.Assets.Assets != 0 {
		t.Fatalf("drained runtime still holds render state:\n%s", spew.Sdump(s.Assets))
	}
	if err := g.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	events, err := trace.ReadTileEvents(cfg.Trace.Dir)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	ready := 0
	for _, ev := range events {
		if ev.To == world.StatusReady.String() {
			ready++
		}
		if ev.Session != g.Session() {
			t.Fatalf("trace event from another session: %+v", ev)
		}
	}
	if ready < 5 {
		t.Fatalf("expected at least 5 ready transitions, got %d", ready)
	}
}

// settled reports that every claimed tile reached Ready, covering at least
// the five tiles around the origin.
func settled(s Stats) bool {
	for _, st := range []world.Status{world.StatusGenerate, world.StatusGenerating, world.StatusUpload, world.StatusEntity} {
		if s.Tiles[st] != 0 {
			return false
		}
	}
	return s.Tiles[world.StatusReady] >= 5
}

func TestRunStopsAfterMaxTicks(t *testing.T) {
	cfg := testConfig(t)
	cfg.Trace.Dir = ""
	logger, _ := test.NewNullLogger()
	g, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	g.SetMaxTicks(20)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := g.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if s := g.Stats(); s.Tick < 20 {
		t.Fatalf("expected at least 20 ticks, got %d", s.Tick)
	}
	if !g.registry.AllInit() {
		t.Fatalf("tile pool not drained: %v", g.registry.Counts())
	}
}

func TestZeroSeedIsRandomized(t *testing.T) {
	cfg := testConfig(t)
	cfg.Terrain.Seed = 0
	logger, _ := test.NewNullLogger()
	g, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer g.Close()
	if g.Seed() == 0 {
		t.Fatalf("seed should have been picked")
	}
	if cfg.Terrain.Seed != 0 {
		t.Fatalf("caller config must not be modified")
	}
}
