// sbpd runs the Stigmergic Blackboard Protocol engine as a standalone
// process: an in-memory pheromone store and scent evaluator exposed over a
// JSON-RPC 2.0 + SSE HTTP surface.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/sbp/pkg/api"
	"github.com/codeready-toolchain/sbp/pkg/config"
	"github.com/codeready-toolchain/sbp/pkg/decay"
	"github.com/codeready-toolchain/sbp/pkg/engine"
	"github.com/codeready-toolchain/sbp/pkg/events"
	"github.com/codeready-toolchain/sbp/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	log.Printf("starting %s", version.Full())

	ctx := context.Background()
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	gin.SetMode(getEnv("GIN_MODE", cfg.HTTP.GinMode))

	logger := slog.Default()

	eng := engine.New(engine.Config{
		EvaluationPeriodMs:      cfg.Engine.EvaluationPeriodMs,
		EmissionHistoryWindowMs: cfg.Engine.EmissionHistoryWindowMs,
		DefaultTTLFloor:         cfg.Engine.DefaultTTLFloor,
		MaxExecutionMs:          cfg.Engine.MaxExecutionMs,
		DefaultDecay:            decay.Model{Type: cfg.Decay.Type, HalfLifeMs: cfg.Decay.HalfLifeMs},
	}, logger)
	eng.Start(time.Now().UnixMilli())
	defer eng.Stop()

	mgr := events.NewManager(logger)
	server := api.NewServer(eng, mgr, cfg.Protocol.Version, logger)

	addr := ":" + cfg.HTTP.Port
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during HTTP shutdown: %v", err)
	}
	eng.Stop()
	log.Println("shutdown complete")
}
