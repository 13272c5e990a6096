package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cragsman/internal/config"
	"cragsman/internal/game"
	"cragsman/internal/logging"
	"cragsman/internal/world"
)

func main() {
	var (
		cfgPath  string
		envPath  string
		dumpPath string
		ticks    uint64
	)
	flag.StringVar(&cfgPath, "config", "", "path to a JSON or YAML configuration file")
	flag.StringVar(&envPath, "env", ".env", "optional dotenv file with CRAGSMAN_* overrides")
	flag.StringVar(&dumpPath, "dump-config", "", "write the effective configuration as YAML to this path (- for stdout) and exit")
	flag.Uint64Var(&ticks, "ticks", 0, "stop after this many control ticks (0 runs until interrupted)")
	flag.Parse()

	if err := loadDotenv(envPath); err != nil {
		log.Fatalf("load env: %v", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("apply env: %v", err)
	}

	if dumpPath != "" {
		if err := dumpConfig(cfg, dumpPath, os.Stdout); err != nil {
			log.Fatalf("dump config: %v", err)
		}
		return
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("initialise logging: %v", err)
	}
	defer closer.Close()

	world.ConfigureLockDetection(cfg.Debug.DeadlockTimeout.Duration())

	g, err := game.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("initialise runtime")
	}
	g.SetMaxTicks(ticks)

	ctx, cancel := signalContext(cfg.Control.DrainTimeout.Duration() * 2)
	defer cancel()

	if err := g.Run(ctx); err != nil {
		logger.WithError(err).Fatal("runtime exited with error")
	}
}

func loadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func signalContext(grace time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			return
		}

		// Ensure the process terminates if draining stalls.
		time.AfterFunc(grace, func() {
			log.Printf("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
