package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestValidateDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration should be valid: %v", err)
	}
	if err := ValidateSchema(cfg); err != nil {
		t.Fatalf("default configuration should satisfy the schema: %v", err)
	}
}

func TestValidateDetectsInvalidConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "non positive tick rate",
			mutate: func(cfg *Config) {
				cfg.Control.TickRate = 0
			},
			wantErr: "control.tickRate must be positive",
		},
		{
			name: "zero uploads per frame",
			mutate: func(cfg *Config) {
				cfg.Control.UploadsPerFrame = 0
			},
			wantErr: "control.uploadsPerFrame must be positive",
		},
		{
			name: "tiny mesh",
			mutate: func(cfg *Config) {
				cfg.Terrain.MeshResolution = 1
			},
			wantErr: "terrain.meshResolution must be at least 2",
		},
		{
			name: "stride not dividing mesh",
			mutate: func(cfg *Config) {
				cfg.Terrain.ColliderStride = 2
			},
			wantErr: "terrain.colliderStride must divide meshResolution-1",
		},
		{
			name: "unload inside load radius",
			mutate: func(cfg *Config) {
				cfg.Streaming.UnloadRadius = 100
			},
			wantErr: "streaming.unloadRadius must be >= loadRadius > 0",
		},
		{
			name: "negative workers",
			mutate: func(cfg *Config) {
				cfg.Streaming.Workers = -1
			},
			wantErr: "streaming.workers cannot be negative",
		},
		{
			name: "single physics step",
			mutate: func(cfg *Config) {
				cfg.Physics.RepeatSteps = 1
			},
			wantErr: "physics.repeatSteps must be at least 2",
		},
		{
			name: "one handed avatar",
			mutate: func(cfg *Config) {
				cfg.Avatar.Hands = 1
			},
			wantErr: "avatar.hands must be at least 2",
		},
		{
			name: "unknown log format",
			mutate: func(cfg *Config) {
				cfg.Logging.Format = "xml"
			},
			wantErr: `logging.format "xml" is not supported`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected an error, got nil")
			}
			if err.Error() != tt.wantErr {
				t.Fatalf("unexpected error: got %q want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	if want := Default(); !reflect.DeepEqual(cfg, want) {
		t.Fatalf("default configuration mismatch:\nwant: %#v\n got: %#v", want, cfg)
	}
}

func TestLoadReadsJSONFileAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Terrain.Seed = 42
	cfg.Streaming.IdlePoll = Duration(25 * time.Millisecond)

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Fatalf("loaded configuration mismatch:\nwant: %#v\n got: %#v", cfg, loaded)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Physics.Gravity = [3]float64{0, 0, -9.8}
	cfg.Logging.Format = "json"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Fatalf("loaded configuration mismatch:\nwant: %#v\n got: %#v", cfg, loaded)
	}
}

func TestLoadPartialYAMLKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yml")
	doc := "streaming:\n  poolSize: 64\ncontrol:\n  tickRate: 20ms\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if loaded.Streaming.PoolSize != 64 {
		t.Fatalf("expected pool size 64, got %d", loaded.Streaming.PoolSize)
	}
	if loaded.Control.TickRate.Duration() != 20*time.Millisecond {
		t.Fatalf("expected 20ms tick, got %v", loaded.Control.TickRate.Duration())
	}
	if loaded.Terrain.TileLength != Default().Terrain.TileLength {
		t.Fatalf("expected default tile length, got %v", loaded.Terrain.TileLength)
	}
}

func TestLoadInvalidConfiguration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Physics.RepeatSteps = 0

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	} else if !strings.HasPrefix(err.Error(), "validate config: ") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"streaming":{"poolSize":8,"bogus":true}}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestDurationUnmarshalForms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Duration
	}{
		{name: "string", in: `"150ms"`, want: 150 * time.Millisecond},
		{name: "nanoseconds", in: `1000`, want: time.Microsecond},
		{name: "null", in: `null`, want: 0},
		{name: "empty string", in: `""`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			if err := json.Unmarshal([]byte(tt.in), &d); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.in, err)
			}
			if d.Duration() != tt.want {
				t.Fatalf("got %v want %v", d.Duration(), tt.want)
			}
		})
	}

	var d Duration
	if err := json.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		EnvSeed:     "1234",
		EnvLogLevel: "DEBUG",
		EnvWorkers:  "3",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Terrain.Seed != 1234 || cfg.Logging.Level != "debug" || cfg.Streaming.Workers != 3 {
		t.Fatalf("overrides not applied: seed=%d level=%q workers=%d", cfg.Terrain.Seed, cfg.Logging.Level, cfg.Streaming.Workers)
	}

	env[EnvWorkers] = "many"
	if err := Default().applyEnv(lookup); err == nil {
		t.Fatalf("expected error for non numeric workers")
	}
}
