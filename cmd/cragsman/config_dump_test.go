package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cragsman/internal/config"
)

func TestDumpConfigRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Terrain.Seed = 77
	cfg.Control.TickRate = config.Duration(20 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "nested", "cragsman.yaml")
	if err := dumpConfig(cfg, path, nil); err != nil {
		t.Fatalf("dumpConfig: %v", err)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("reload dumped config: %v", err)
	}
	if loaded.Terrain.Seed != 77 {
		t.Fatalf("unexpected seed %d", loaded.Terrain.Seed)
	}
	if loaded.Control.TickRate.Duration() != 20*time.Millisecond {
		t.Fatalf("unexpected tick rate %v", loaded.Control.TickRate.Duration())
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected file mode %v", info.Mode().Perm())
	}
}

func TestDumpConfigStdout(t *testing.T) {
	var buf bytes.Buffer
	if err := dumpConfig(config.Default(), "-", &buf); err != nil {
		t.Fatalf("dumpConfig: %v", err)
	}
	out := buf.String()
	for _, key := range []string{"tickRate: 33.333333ms", "poolSize: 256", "repeatSteps: 2"} {
		if !strings.Contains(out, key) {
			t.Fatalf("expected %q in dump:\n%s", key, out)
		}
	}
}

func TestDumpConfigRejectsInvalid(t *testing.T) {
	cfg := config.Default()
	cfg.Physics.RepeatSteps = 1
	if err := dumpConfig(cfg, "-", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CRAGSMAN_TEST_VALUE=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("CRAGSMAN_TEST_VALUE", "")
	os.Unsetenv("CRAGSMAN_TEST_VALUE")

	if err := loadDotenv(path); err != nil {
		t.Fatalf("loadDotenv: %v", err)
	}
	if got := os.Getenv("CRAGSMAN_TEST_VALUE"); got != "from-dotenv" {
		t.Fatalf("expected dotenv value, got %q", got)
	}
	if err := loadDotenv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("a missing dotenv file is not an error: %v", err)
	}
}
