package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"yieldengine/api"
	"yieldengine/config"
	"yieldengine/database"
	"yieldengine/events"
	"yieldengine/repository"
	"yieldengine/service"

	"github.com/redis/go-redis/v9"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting yield distribution engine...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize reporter cache when configured
	var cache *redis.Client
	if cfg.RedisURL != "" {
		log.Println("Connecting to redis...")
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis URL: %w", err)
		}
		cache = redis.NewClient(opts)
		if err := cache.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		log.Println("Redis connection established successfully")
	} else {
		log.Println("No redis configured, stats cache disabled")
	}

	// Initialize event bus
	log.Println("Initializing event bus...")
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	log.Println("Initializing services...")
	distributionService := service.NewDistributionService(uowFactory)
	reporterService := service.NewReporterService(uowFactory, cache, cfg.StatsCacheTTL)

	// Initialize HTTP server
	handler := api.NewHandler(distributionService, reporterService)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewRouter(handler),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s in %s mode...", cfg.ListenAddr, cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		db.Close()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	// Cleanup resources
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if cache != nil {
		if err := cache.Close(); err != nil {
			log.Printf("Error closing redis connection: %v", err)
		}
	}

	log.Println("Closing database connection...")
	db.Close()

	log.Println("Shutdown completed")
	return nil
}
