package main

import (
	"flag"
	"log"

	"github.com/dustin/go-humanize"

	"cragsman/internal/config"
	"cragsman/internal/terrain"
)

func main() {
	var (
		cfgPath string
		outDir  string
		seed    int64
		x, y    int
	)
	flag.StringVar(&cfgPath, "config", "", "optional configuration file for terrain parameters")
	flag.StringVar(&outDir, "out", ".", "directory for the PNG preview")
	flag.Int64Var(&seed, "seed", 0, "terrain seed (0 keeps the configured seed)")
	flag.IntVar(&x, "x", 0, "tile x")
	flag.IntVar(&y, "y", 0, "tile y")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if seed != 0 {
		cfg.Terrain.Seed = seed
	}

	oracle := terrain.NewOracle(cfg.Terrain.Seed)
	synth := terrain.NewSynthesizer(cfg.Terrain, oracle)
	payload, err := synth.Synthesize(x, y)
	if err != nil {
		log.Fatalf("synthesize tile %d,%d: %v", x, y, err)
	}
	path, err := terrain.SavePreview(payload, outDir)
	if err != nil {
		log.Fatalf("save preview: %v", err)
	}
	log.Printf("tile %d,%d palette %s: %d triangles, %d masked texels, %s payload -> %s",
		x, y, oracle.Palette(), len(payload.Collider.Triangles), payload.Masked,
		humanize.Bytes(uint64(payload.Size())), path)
}
