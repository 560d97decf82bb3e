package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/driftmark/driftmark/config"
	"github.com/driftmark/driftmark/core"
	"github.com/driftmark/driftmark/store"
	"github.com/driftmark/driftmark/store/postgres"
	"github.com/driftmark/driftmark/store/sqlite"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to YAML configuration file")
	)
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configFile != "" {
		loaded, err := config.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
		log.Printf("Starting with configuration from %s", *configFile)
	} else {
		log.Printf("Starting with default configuration (sqlite: %s)", cfg.Store.SQLite.Path)
	}

	var backend store.Backend
	var err error
	switch cfg.Store.Driver {
	case "postgres":
		backend, err = postgres.New(cfg.Store.Postgres)
	case "sqlite":
		backend, err = sqlite.New(cfg.Store.SQLite.Path)
	default:
		log.Fatalf("Unsupported store driver: %q", cfg.Store.Driver)
	}
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}

	c := core.New(cfg, backend)
	if err := c.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %v, shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}
	log.Println("Server stopped")
}
