// NtC step classification service
// HTTP + WebSocket front end for the dinucleotide-step classification engine
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"ntcstep/internal/classifyapi"
	"ntcstep/internal/classifycache"
	"ntcstep/internal/config"
	"ntcstep/internal/engine"
	"ntcstep/internal/tables"
	"ntcstep/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[SERVER] configuration error: %v", err)
	}

	log.Println("==============================================")
	log.Println("  NtC Step Classification Service")
	log.Println("==============================================")
	log.Printf("Port: %d", cfg.Port)
	log.Printf("Redis: %s", describeRedis(cfg.RedisAddr))
	log.Println("==============================================")

	classifyCtx, err := buildContext(cfg)
	if err != nil {
		log.Fatalf("[SERVER] failed to build classification context: %v", err)
	}

	cache := classifycache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	tracer := tracing.New()

	apiServer := classifyapi.NewServer(classifyCtx, cache, tracer)
	router := mux.NewRouter()
	apiServer.RegisterRoutes(router)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("[SERVER] Starting HTTP server on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[SERVER] Failed to start server: %v", err)
		}
	}()

	log.Println("[SERVER] Server started successfully")
	log.Printf("[SERVER] REST API: http://localhost%s/api/v1/classify/step", addr)
	log.Printf("[SERVER] WebSocket endpoint: ws://localhost%s/api/v1/classify/stream", addr)
	log.Println("[SERVER] Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("[SERVER] Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[SERVER] Error during shutdown: %v", err)
	}
	if err := cache.Close(); err != nil {
		log.Printf("[SERVER] Error closing cache: %v", err)
	}

	log.Println("[SERVER] Server stopped")
}

func describeRedis(addr string) string {
	if addr == "" {
		return "disabled (in-memory cache only)"
	}
	return addr
}

// buildContext loads every reference table named in cfg and assembles a
// classification Context. The extended-backbone table is optional: its
// absence only disables the RMSD-to-closest-NtC value and the close-enough
// RMSD check, not classification itself.
func buildContext(cfg config.Config) (*engine.Context, error) {
	clusters, _, err := loadTable(cfg.ClustersPath, tables.LoadClusters)
	if err != nil {
		return nil, fmt.Errorf("clusters table: %w", err)
	}
	goldenSteps, _, err := loadTable(cfg.GoldenStepsPath, tables.LoadGoldenSteps)
	if err != nil {
		return nil, fmt.Errorf("golden steps table: %w", err)
	}
	confals, _, err := loadTable(cfg.ConfalsPath, tables.LoadConfals)
	if err != nil {
		return nil, fmt.Errorf("confals table: %w", err)
	}
	nuAngles, _, err := loadTable(cfg.NuAnglesPath, tables.LoadNuAngles)
	if err != nil {
		return nil, fmt.Errorf("nu-angles table: %w", err)
	}

	var extBackbone []tables.ExtBackboneRow
	if cfg.ExtBackbonePath != "" {
		extBackbone, _, err = loadTable(cfg.ExtBackbonePath, tables.LoadExtBackbone)
		if err != nil {
			return nil, fmt.Errorf("extended-backbone table: %w", err)
		}
	}

	percentiles, err := loadPercentiles(cfg.PercentilesPath)
	if err != nil {
		return nil, fmt.Errorf("percentiles table: %w", err)
	}

	return engine.NewContext(clusters, goldenSteps, confals, nuAngles, extBackbone, percentiles, cfg.Limits, cfg.CloseEnoughRMSD)
}

func loadTable[T any](path string, load func(r io.Reader) ([]T, []tables.Warning, error)) ([]T, []tables.Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	rows, warnings, err := load(f)
	for _, w := range warnings {
		log.Printf("[TABLES] %s line %d: %s", path, w.Line, w.Reason)
	}
	return rows, warnings, err
}

func loadPercentiles(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tables.LoadConfalPercentiles(f)
}
