package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a JSON and YAML friendly wrapper around time.Duration that
// accepts human readable strings such as "150ms" in configuration files while
// still allowing numeric representations when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML encodes the duration as its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar at line %d", node.Line)
	}
	if node.Tag == "!!int" {
		var n int64
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode int: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config captures the tunable parameters of the game core.
type Config struct {
	Control   ControlConfig   `json:"control" yaml:"control"`
	Terrain   TerrainConfig   `json:"terrain" yaml:"terrain"`
	Streaming StreamingConfig `json:"streaming" yaml:"streaming"`
	Physics   PhysicsConfig   `json:"physics" yaml:"physics"`
	Clinches  ClinchConfig    `json:"clinches" yaml:"clinches"`
	Avatar    AvatarConfig    `json:"avatar" yaml:"avatar"`
	Boulders  BoulderConfig   `json:"boulders" yaml:"boulders"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Trace     TraceConfig     `json:"trace" yaml:"trace"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Debug     DebugConfig     `json:"debug" yaml:"debug"`
}

type ControlConfig struct {
	TickRate        Duration `json:"tickRate" yaml:"tickRate"`         // control/physics period, e.g. "33ms"
	DispatchRate    Duration `json:"dispatchRate" yaml:"dispatchRate"` // render/dispatch frame period
	DrainTimeout    Duration `json:"drainTimeout" yaml:"drainTimeout"` // upper bound for shutdown draining
	UploadsPerFrame int      `json:"uploadsPerFrame" yaml:"uploadsPerFrame"`
}

type TerrainConfig struct {
	Seed              int64   `json:"seed" yaml:"seed"` // 0 picks a random seed at startup
	TileLength        float64 `json:"tileLength" yaml:"tileLength"`
	MeshResolution    int     `json:"meshResolution" yaml:"meshResolution"`       // vertices per axis
	TextureResolution int     `json:"textureResolution" yaml:"textureResolution"` // texels per axis
	ColliderStride    int     `json:"colliderStride" yaml:"colliderStride"`       // mesh decimation for colliders
	DilationPasses    int     `json:"dilationPasses" yaml:"dilationPasses"`
}

type StreamingConfig struct {
	PoolSize     int      `json:"poolSize" yaml:"poolSize"`
	LoadRadius   float64  `json:"loadRadius" yaml:"loadRadius"`
	UnloadRadius float64  `json:"unloadRadius" yaml:"unloadRadius"`
	DemandWindow int      `json:"demandWindow" yaml:"demandWindow"` // tiles scanned around the player tile
	Workers      int      `json:"workers" yaml:"workers"`           // 0 means NumCPU-1
	IdlePoll     Duration `json:"idlePoll" yaml:"idlePoll"`
}

type PhysicsConfig struct {
	RepeatSteps     int        `json:"repeatSteps" yaml:"repeatSteps"`
	Gravity         [3]float64 `json:"gravity" yaml:"gravity"`
	VelocityDamping float64    `json:"velocityDamping" yaml:"velocityDamping"`
	Debug           bool       `json:"debug" yaml:"debug"` // panic on non-finite state
}

type ClinchConfig struct {
	TileLength    float64 `json:"tileLength" yaml:"tileLength"`
	LoadRadius    float64 `json:"loadRadius" yaml:"loadRadius"`
	UnloadRadius  float64 `json:"unloadRadius" yaml:"unloadRadius"`
	TerrainOffset float64 `json:"terrainOffset" yaml:"terrainOffset"`
	Radius        float64 `json:"radius" yaml:"radius"`
}

type AvatarConfig struct {
	Hands             int     `json:"hands" yaml:"hands"`
	GrabRadius        float64 `json:"grabRadius" yaml:"grabRadius"`
	MaxCursorDistance float64 `json:"maxCursorDistance" yaml:"maxCursorDistance"`
}

type BoulderConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	SpawnChance float64 `json:"spawnChance" yaml:"spawnChance"`
	TTLTicks    int     `json:"ttlTicks" yaml:"ttlTicks"`
}

type CacheConfig struct {
	Enabled     bool  `json:"enabled" yaml:"enabled"`
	NumCounters int64 `json:"numCounters" yaml:"numCounters"`
	MaxCost     int64 `json:"maxCost" yaml:"maxCost"` // bytes of cached payloads
}

type TraceConfig struct {
	Dir string `json:"dir" yaml:"dir"` // empty disables the tile trace
}

type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"` // "text" or "json"
	File       string `json:"file" yaml:"file"`
	MaxSizeMB  int    `json:"maxSizeMb" yaml:"maxSizeMb"`
	MaxBackups int    `json:"maxBackups" yaml:"maxBackups"`
}

type DebugConfig struct {
	DeadlockTimeout Duration `json:"deadlockTimeout" yaml:"deadlockTimeout"` // 0 disables lock-order detection
}

// Load reads configuration from a JSON or YAML file if provided. The format is
// chosen by extension. An empty path returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := ValidateSchema(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Control: ControlConfig{
			TickRate:        Duration(time.Second / 30),
			DispatchRate:    Duration(16 * time.Millisecond),
			DrainTimeout:    Duration(5 * time.Second),
			UploadsPerFrame: 1,
		},
		Terrain: TerrainConfig{
			Seed:              0,
			TileLength:        30,
			MeshResolution:    40,
			TextureResolution: 128,
			ColliderStride:    1,
			DilationPasses:    2,
		},
		Streaming: StreamingConfig{
			PoolSize:     256,
			LoadRadius:   200,
			UnloadRadius: 300,
			DemandWindow: 10,
			Workers:      0,
			IdlePoll:     Duration(10 * time.Millisecond),
		},
		Physics: PhysicsConfig{
			RepeatSteps:     2,
			Gravity:         [3]float64{0, -9.8, 0},
			VelocityDamping: 0.995,
		},
		Clinches: ClinchConfig{
			TileLength:    70,
			LoadRadius:    300,
			UnloadRadius:  400,
			TerrainOffset: 1,
			Radius:        1,
		},
		Avatar: AvatarConfig{
			Hands:             3,
			GrabRadius:        3,
			MaxCursorDistance: 30,
		},
		Boulders: BoulderConfig{
			Enabled:     true,
			SpawnChance: 0.01,
			TTLTicks:    1000,
		},
		Cache: CacheConfig{
			Enabled:     true,
			NumCounters: 10_000,
			MaxCost:     256 << 20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

func (c *Config) Validate() error {
	if c.Control.TickRate <= 0 {
		return errors.New("control.tickRate must be positive")
	}
	if c.Control.DispatchRate <= 0 {
		return errors.New("control.dispatchRate must be positive")
	}
	if c.Control.UploadsPerFrame <= 0 {
		return errors.New("control.uploadsPerFrame must be positive")
	}
	if c.Terrain.TileLength <= 0 {
		return errors.New("terrain.tileLength must be positive")
	}
	if c.Terrain.MeshResolution < 2 {
		return errors.New("terrain.meshResolution must be at least 2")
	}
	if c.Terrain.TextureResolution < 1 {
		return errors.New("terrain.textureResolution must be positive")
	}
	if c.Terrain.ColliderStride < 1 || (c.Terrain.MeshResolution-1)%c.Terrain.ColliderStride != 0 {
		return errors.New("terrain.colliderStride must divide meshResolution-1")
	}
	if c.Terrain.DilationPasses < 0 {
		return errors.New("terrain.dilationPasses cannot be negative")
	}
	if c.Streaming.PoolSize <= 0 {
		return errors.New("streaming.poolSize must be positive")
	}
	if c.Streaming.LoadRadius <= 0 || c.Streaming.UnloadRadius < c.Streaming.LoadRadius {
		return errors.New("streaming.unloadRadius must be >= loadRadius > 0")
	}
	if c.Streaming.DemandWindow <= 0 {
		return errors.New("streaming.demandWindow must be positive")
	}
	if c.Streaming.Workers < 0 {
		return errors.New("streaming.workers cannot be negative")
	}
	if c.Physics.RepeatSteps < 2 {
		return errors.New("physics.repeatSteps must be at least 2")
	}
	if c.Physics.VelocityDamping <= 0 || c.Physics.VelocityDamping > 1 {
		return errors.New("physics.velocityDamping must be in (0,1]")
	}
	if c.Clinches.TileLength <= 0 || c.Clinches.UnloadRadius < c.Clinches.LoadRadius {
		return errors.New("clinches.unloadRadius must be >= loadRadius and tileLength positive")
	}
	if c.Avatar.Hands < 2 {
		return errors.New("avatar.hands must be at least 2")
	}
	if c.Boulders.SpawnChance < 0 || c.Boulders.SpawnChance > 1 {
		return errors.New("boulders.spawnChance must be within [0,1]")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported", c.Logging.Format)
	}
	return nil
}
