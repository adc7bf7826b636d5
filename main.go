package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"trade-advisor/config"
	"trade-advisor/internal/api"
	"trade-advisor/internal/database"
	"trade-advisor/internal/engine"
	"trade-advisor/internal/levels"
	"trade-advisor/internal/logging"
	"trade-advisor/internal/profile"
	"trade-advisor/internal/store"
)

func main() {
	// .env is optional; environment wins either way
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.LoggingConfig.Level,
		Output: cfg.LoggingConfig.Output,
		Pretty: cfg.LoggingConfig.Pretty,
	})
	logger.Info("trade advisor starting")

	registry, err := profile.NewRegistry()
	if err != nil {
		logger.Fatal("invalid profile configuration", "error", err)
	}

	detector := levels.NewDetector(levels.DefaultConfig())

	eng := engine.New(registry, detector, engine.RiskTargetConfig{
		ATRPeriod:         cfg.EngineConfig.ATRPeriod,
		StrongLevelMin:    cfg.EngineConfig.StrongLevelMin,
		LevelBufferATR:    cfg.EngineConfig.LevelBufferATR,
		ATRFallbackFactor: cfg.EngineConfig.ATRFallbackFactor,
	}, logger)

	var redisClient *redis.Client
	if cfg.RedisConfig.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable at startup, falling back to in-memory cache", "error", err)
		}
		cancel()
	}
	cache := store.NewRecommendationCache(redisClient, cfg.CacheTTL(), logger)

	var repo *database.RecommendationRepository
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		})
		if err != nil {
			logger.Fatal("database connection failed", "error", err)
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.Migrate(migrateCtx); err != nil {
			cancel()
			logger.Fatal("database migration failed", "error", err)
		}
		cancel()
		repo = database.NewRecommendationRepository(db)
		logger.Info("audit trail enabled", "database", cfg.DatabaseConfig.Database)
	}

	server := api.NewServer(api.ServerConfig{
		Host:            cfg.ServerConfig.Host,
		Port:            cfg.ServerConfig.Port,
		AllowedOrigins:  cfg.ServerConfig.AllowedOrigins,
		RateLimitPerMin: cfg.ServerConfig.RateLimitPerMin,
	}, eng, registry, cache, repo, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", "error", err)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("trade advisor stopped")
}
