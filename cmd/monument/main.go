// Monument simulation server - provides the HTTP/WebSocket API for a
// multi-agent bulk-synchronous-parallel grid simulation.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/monument-sim/monument/pkg/api"
	"github.com/monument-sim/monument/pkg/cleanup"
	"github.com/monument-sim/monument/pkg/config"
	"github.com/monument-sim/monument/pkg/namespace"
	"github.com/monument-sim/monument/pkg/services"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Monument")
	log.Printf("HTTP address: %s", cfg.HTTPAddr)
	log.Printf("Data directory: %s", cfg.DataDir)

	registry := namespace.NewRegistry(cfg)
	defer registry.CloseAll()

	actionService := services.NewActionService(registry)
	contextService := services.NewContextService(registry, nil)
	adjudicationService := services.NewAdjudicationService(registry)
	replayService := services.NewReplayService(registry)
	adminService := services.NewAdminService(registry)

	server := api.NewServer(registry, actionService, contextService, adjudicationService, replayService, adminService)

	sweeper := cleanup.NewService(registry, cfg.IdleHandleTTL, cfg.IdleHandleTTL/3)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		errCh <- server.Start(cfg.HTTPAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during HTTP shutdown: %v", err)
		}
	}

	log.Printf("Monument stopped")
}
