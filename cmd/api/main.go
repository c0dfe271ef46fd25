package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"studypilot/backend/internal/api/handlers"
	"studypilot/backend/internal/api/router"
	"studypilot/backend/internal/config"
	"studypilot/backend/internal/domain/profile"
	"studypilot/backend/internal/pkg/logger"
	"studypilot/backend/internal/pkg/validator"
	"studypilot/backend/internal/relay"
	"studypilot/backend/internal/repository/cache"
	"studypilot/backend/internal/repository/postgres"
	"studypilot/backend/internal/services"
	"studypilot/backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	db, err := postgres.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(db, cfg.Database.Driver); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	profileRepo := postgres.NewProfileRepository(db, cfg.Database.Driver)

	// Optional Redis read-through cache in front of the profile store.
	var store profile.Repository = profileRepo
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).Warn("Redis unreachable, continuing without profile cache")
		} else {
			store = cache.NewProfileCache(profileRepo, rdb, cfg.Redis.TTL, log)
			log.Info("Profile cache enabled")
		}
	}

	// Services
	profileService := services.NewProfileService(store, cfg.Auth.BCryptCost, log)
	entitlementService := services.NewEntitlementService(store, log)
	completer := relay.NewOpenAIClient(cfg.OpenAI)
	generationService := services.NewGenerationService(entitlementService, completer, log)
	billingService := services.NewBillingService(cfg.Stripe, cfg.Server.AppURL, store, log)

	val := validator.New()

	// Handlers
	h := &router.Handlers{
		Health:   handlers.NewHealthHandler(db, log),
		Auth:     handlers.NewAuthHandler(profileService, cfg, log, val),
		Profile:  handlers.NewProfileHandler(profileService, log),
		Generate: handlers.NewGenerateHandler(generationService, log, val),
		Billing:  handlers.NewBillingHandler(billingService, log),
	}

	// Background workers
	reporter := worker.NewUsageReporter(profileRepo, log)
	if err := reporter.Start(); err != nil {
		log.Fatalf("Failed to start usage reporter: %v", err)
	}
	defer reporter.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infof("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.ErrorWithErr(err, "Server forced to shutdown")
	}

	log.Info("Server exited")
}
