// Package main is the entry point for the point list server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joaomamede/lowCostHCA/internal/api"
	"github.com/joaomamede/lowCostHCA/internal/cache"
	"github.com/joaomamede/lowCostHCA/internal/config"
	"github.com/joaomamede/lowCostHCA/internal/logging"
	"github.com/joaomamede/lowCostHCA/internal/render"
	"github.com/joaomamede/lowCostHCA/internal/service"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	noRuns := flag.Bool("no-runs", false, "Disable run history")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	closeLog, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	log.Printf("Starting point list server on port %d", cfg.Server.Port)

	ctx := context.Background()

	// Initialize cache manager
	cacheManager, err := cache.NewManager(cache.Config{
		PreviewSizeMB:     cfg.Cache.PreviewSizeMB,
		PreviewTTL:        cfg.Cache.PreviewTTL(),
		DocumentCacheSize: cfg.Cache.DocumentCacheSize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()

	renderer := render.NewRenderer(render.Config{
		MaxDimension:  cfg.Render.MaxDimensionPx,
		WellPixels:    cfg.Render.WellPixels,
		OrderColormap: cfg.Render.OrderColormap,
	})

	tilingParams := cfg.Tiling.Params()
	plateParams := cfg.Plate.Params()
	svcCfg := service.PointListServiceConfig{
		Tiling:    tilingParams,
		Numbering: cfg.Tiling.Numbering(),
		Plate:     plateParams,
		Cache:     cacheManager,
		Renderer:  renderer,
	}

	// Run history (SQLite persistence)
	if !*noRuns {
		runManager, err := api.NewRunManager(api.RunManagerConfig{
			SQLitePath:    cfg.Runs.SQLitePath,
			RetentionDays: cfg.Runs.RetentionDays,
			CleanupPeriod: cfg.Runs.CleanupPeriod(),
		})
		if err != nil {
			log.Fatalf("Failed to initialize run manager: %v", err)
		}
		log.Printf("Run history: retention_days=%d, sqlite=%s", cfg.Runs.RetentionDays, cfg.Runs.SQLitePath)

		runManager.Start()
		defer runManager.Stop()
		svcCfg.Runs = runManager.Store()
	}

	log.Printf("Tiling: FOV %.1f um, step %.1f um, numbering=%s",
		tilingParams.FOV(), tilingParams.Step(), svcCfg.Numbering)
	log.Printf("Plate: %dx%d, %d points/well, min distance %.1f um, strategy=%s",
		plateParams.Layout.Rows, plateParams.Layout.Cols, plateParams.PointsPerWell,
		plateParams.MinDistanceUM, plateParams.Strategy)

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Service:        service.NewPointListService(svcCfg),
		CORSOrigins:    cfg.Server.CORSOrigins,
		Title:          cfg.Server.Title,
		TilingDefaults: tilingParams,
		PlateDefaults:  plateParams,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
