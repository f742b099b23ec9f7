package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/asciidraw/config"
	"github.com/nvr-ai/asciidraw/profiler"
	"github.com/nvr-ai/asciidraw/server"
)

func main() {
	var (
		configPath string
		addr       string
		debug      bool
	)
	flag.StringVar(&configPath, "config", "", "Path to YAML configuration file (defaults are used when empty)")
	flag.StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	flag.BoolVar(&debug, "debug", false, "Enable converter debug logging")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatalf("Error loading configuration: %v", err)
		}
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if debug {
		cfg.Conversion.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// run serves until SIGINT or SIGTERM.
func run(cfg *config.Config) error {
	var prof *profiler.Profiler
	if cfg.Profiler.Enabled {
		prof = profiler.New(profiler.Options{ReportInterval: cfg.Profiler.ReportInterval})
		prof.Start()
		defer prof.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, prof).Run(ctx)
}
