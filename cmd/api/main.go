package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Timestamp: true,
		Output:    os.Stdout,
	})

	db, err := database.New(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.RunMigrations(db, cfg.Database.MigrationsDir); err != nil {
		logging.Fatal().Err(err).Msg("failed to run migrations")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = database.NewRedisClient(cfg.Redis)
		if err != nil {
			logging.Warn().Err(err).Msg("redis unavailable, continuing without token revocation and rate limiting")
			redisClient = nil
		}
	}

	images, mediaDir := imageStore(cfg.Storage)

	presenter := service.NewPresenter(db)
	services := api.Services{
		Auth:      service.NewAuthService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, redisClient),
		Users:     service.NewUserService(db, presenter),
		Catalog:   service.NewCatalogService(db),
		Recipes:   service.NewRecipeService(db, cfg.Limits, images, presenter),
		Relations: service.NewRelationService(db, presenter),
		Shopping:  service.NewShoppingListService(db),
		MediaDir:  mediaDir,
	}
	if redisClient != nil {
		services.RecipeWrites = middleware.NewRecipeWriteRateLimiter(redisClient, cfg.RateLimit.Window, cfg.RateLimit.RecipeWrites)
	}

	srv := server.New(cfg.Server, services)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logging.Fatal().Err(err).Msg("server error")
		}
	case sig := <-quit:
		logging.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logging.Info().Msg("server stopped")
}

// imageStore uploads to S3 when storage is enabled and falls back to the
// local media directory otherwise. The returned dir is empty for S3.
func imageStore(cfg config.StorageConfig) (service.ImageStore, string) {
	if !cfg.Enabled {
		logging.Info().Str("dir", cfg.MediaDir).Msg("storing recipe images on local disk")
		return service.NewLocalImageStore(cfg.MediaDir, "/media"), cfg.MediaDir
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s3Config, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialise S3")
	}
	if cfg.ApplyPublicPolicy {
		if err := s3Config.SetupBucketPolicy(ctx); err != nil {
			logging.Warn().Err(err).Str("bucket", cfg.Bucket).Msg("failed to apply bucket policy")
		}
	}
	logging.Info().Str("bucket", cfg.Bucket).Msg("storing recipe images in S3")
	return service.NewS3ImageStore(s3Config), ""
}
