// Package main is the entry point for the pattern trie anomaly detector.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fidde/patterntrie/internal/anomaly"
	"github.com/fidde/patterntrie/internal/api"
	"github.com/fidde/patterntrie/internal/config"
	"github.com/fidde/patterntrie/internal/receiver"
	"github.com/fidde/patterntrie/internal/storage/clickhouse"
	"github.com/fidde/patterntrie/internal/storage/snapshot"
)

func main() {
	log.Println("Starting pattern trie anomaly detector...")

	tuningPath := getEnv("TUNING_CONFIG", "config/tuning.yaml")
	tuning, err := config.LoadTuningConfig(tuningPath)
	if err != nil {
		log.Printf("Warning: Failed to load tuning config from %s: %v, using defaults", tuningPath, err)
		tuning = config.DefaultTuningConfig()
	}

	mode := anomaly.ModeDetect
	if getEnvBool("TRAINING_MODE", false) {
		mode = anomaly.ModeTraining
		log.Println("Running in training mode: every ingested line is learned")
	} else {
		log.Println("Running in detect mode: non-matching lines are described and sunk")
	}

	snapshotPath := getEnv("SNAPSHOT_DB_PATH", "patterntrie_snapshots.db")
	snapshots, err := snapshot.New(snapshotPath)
	if err != nil {
		log.Fatalf("Failed to open snapshot store at %s: %v", snapshotPath, err)
	}
	defer func() {
		if err := snapshots.Close(); err != nil {
			log.Printf("Error closing snapshot store: %v", err)
		}
	}()

	registry := anomaly.NewRegistry(mode, tuning, snapshots)

	var sink receiver.EventSink
	if getEnvBool("CLICKHOUSE_ENABLED", false) {
		chConfig := clickhouse.DefaultConfig()
		chConfig.Addr = getEnv("CLICKHOUSE_ADDR", chConfig.Addr)
		chConfig.Database = getEnv("CLICKHOUSE_DATABASE", chConfig.Database)
		chConfig.Username = getEnv("CLICKHOUSE_USERNAME", chConfig.Username)
		chConfig.Password = getEnv("CLICKHOUSE_PASSWORD", chConfig.Password)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		chStore, err := clickhouse.NewStore(ctx, chConfig, nil)
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		defer func() {
			if err := chStore.Close(); err != nil {
				log.Printf("Error closing ClickHouse store: %v", err)
			}
		}()
		sink = chStore
		log.Printf("Anomaly events will be sunk to ClickHouse at %s", chConfig.Addr)
	} else {
		log.Println("ClickHouse sink disabled (set CLICKHOUSE_ENABLED=true to enable)")
	}

	otlpHTTPAddr := getEnv("OTLP_HTTP_ADDR", "0.0.0.0:4318")
	otlpGRPCAddr := getEnv("OTLP_GRPC_ADDR", "0.0.0.0:4317")
	httpReceiver := receiver.NewHTTPReceiver(otlpHTTPAddr, registry, sink)
	grpcReceiver := receiver.NewGRPCReceiver(otlpGRPCAddr, registry, sink)

	apiAddr := getEnv("API_ADDR", "0.0.0.0:8080")
	apiServer := api.NewServer(apiAddr, registry)

	pprofAddr := getEnv("PPROF_ADDR", "localhost:6060")
	go func() {
		log.Printf("Starting pprof server on http://%s/debug/pprof", pprofAddr)
		if err := http.ListenAndServe(pprofAddr, nil); err != nil {
			log.Printf("pprof server error: %v", err)
		}
	}()

	errChan := make(chan error, 3)

	go func() {
		log.Printf("Starting OTLP HTTP receiver on %s", otlpHTTPAddr)
		if err := httpReceiver.Start(); err != nil {
			errChan <- fmt.Errorf("OTLP HTTP receiver error: %w", err)
		}
	}()

	go func() {
		log.Printf("Starting OTLP gRPC receiver on %s", otlpGRPCAddr)
		if err := grpcReceiver.Start(); err != nil {
			errChan <- fmt.Errorf("OTLP gRPC receiver error: %w", err)
		}
	}()

	go func() {
		log.Printf("Starting REST API server on %s", apiAddr)
		if err := apiServer.Start(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)
	log.Println("All servers started successfully")
	log.Println("OTLP endpoints:")
	log.Printf("  - HTTP: http://%s/v1/logs", otlpHTTPAddr)
	log.Printf("  - gRPC: %s", otlpGRPCAddr)
	log.Println("API endpoints:")
	log.Printf("  - Learn:    POST http://%s/v1/detectors/{name}/learn", apiAddr)
	log.Printf("  - Match:    POST http://%s/v1/detectors/{name}/match", apiAddr)
	log.Printf("  - Describe: POST http://%s/v1/detectors/{name}/describe", apiAddr)
	log.Printf("  - Snapshot: POST http://%s/v1/detectors/{name}/snapshot", apiAddr)
	log.Printf("  - Health:   GET  http://%s/health", apiAddr)
	log.Println("Profiling:")
	log.Printf("  - pprof: http://%s/debug/pprof", pprofAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v, shutting down...", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Println("Shutting down servers...")
	if err := httpReceiver.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down OTLP HTTP receiver: %v", err)
	}
	if err := grpcReceiver.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down OTLP gRPC receiver: %v", err)
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}

	log.Println("Shutdown complete")
}

// getEnv gets an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default fallback.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
