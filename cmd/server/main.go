package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storycave/backend/internal/models"
	"storycave/backend/pkg/config"
	"storycave/backend/pkg/di"
	"storycave/backend/pkg/logger"
	"storycave/backend/pkg/router"
	"storycave/backend/shared/observability"
)

func main() {
	cfg := config.New()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"))

	// Tracing and metrics
	shutdownTracing := observability.SetupTracing("storycave-backend")
	defer shutdownTracing()
	observability.SetupPrometheusMetrics()

	// Initialize database
	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(
		&models.Character{},
		&models.Scene{},
		&models.SceneCharacter{},
		&models.Interaction{},
		&models.Memory{},
		&models.CharacterFeeling{},
		&models.PlotNote{},
	); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// Create indexes for better query performance
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_interactions_scene_created ON interactions(scene_id, created_at)").Error; err != nil {
		log.LogError(err, "Failed to create interaction index", "index", "idx_interactions_scene_created")
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_memories_char_scene ON memories(character_id, scene_id)").Error; err != nil {
		log.LogError(err, "Failed to create memory index", "index", "idx_memories_char_scene")
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_feelings_character ON character_feelings(character_id)").Error; err != nil {
		log.LogError(err, "Failed to create feeling index", "index", "idx_feelings_character")
	}

	// Initialize dependency injection container
	container, err := di.New(db, cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	// Initialize and setup router
	r := router.New(container)
	r.SetupRoutes()

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	// Start the server in a goroutine
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
}
