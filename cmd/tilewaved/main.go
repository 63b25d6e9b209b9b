// Command tilewaved serves the interactive playground.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawnchairsociety/tilewave/internal/config"
	"github.com/lawnchairsociety/tilewave/internal/logger"
	"github.com/lawnchairsociety/tilewave/internal/sample"
	"github.com/lawnchairsociety/tilewave/internal/server"
	"github.com/lawnchairsociety/tilewave/internal/store"
)

func main() {
	configFile := flag.String("config", "data/tilewave.yaml", "Path to config YAML file")
	address := flag.String("addr", "", "HTTP/WebSocket listen address (overrides config)")
	telnet := flag.String("telnet", "", "Telnet listen address (overrides config)")
	dbFile := flag.String("db", "", "Record sessions into this SQLite database (overrides config)")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, _ := logger.LoadConfig(*configFile)
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to load config, using defaults", "path", *configFile, "error", err)
	}
	if *address != "" {
		cfg.Server.Address = *address
	}
	if *telnet != "" {
		cfg.Server.TelnetAddress = *telnet
	}
	if *dbFile != "" {
		cfg.Store.Driver = "sqlite"
		cfg.Store.SQLitePath = *dbFile
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger.Info("Starting tilewave server")

	lib, err := sample.LoadLibrary(cfg.Solver.SamplesFile)
	if err != nil {
		log.Fatalf("Failed to load samples: %v", err)
	}
	if _, err := lib.Get(cfg.Solver.Sample); err != nil {
		log.Fatalf("Default sample: %v", err)
	}
	logger.Info("Samples loaded", "count", len(lib.Names()), "default", cfg.Solver.Sample)

	var archive server.Archive
	if cfg.Store.Enabled() {
		st, err := store.Open(cfg.Store.StoreOptions())
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
		defer st.Close()
		archive = st
		logger.Info("Recording sessions", "driver", cfg.Store.Driver)
	}

	srv := server.NewServer(cfg, lib, archive)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	if cfg.Server.TelnetAddress != "" {
		go func() {
			if err := srv.StartTelnet(cfg.Server.TelnetAddress); err != nil {
				log.Fatalf("Telnet server error: %v", err)
			}
		}()
	}

	logger.Info("Server running", "address", cfg.Server.Address, "telnet_address", cfg.Server.TelnetAddress)
	logger.Info("Press Ctrl+C to shutdown")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown did not finish cleanly", "error", err)
	}
	logger.Info("Server stopped")
}
