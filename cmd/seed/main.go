package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/apperrors"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

var defaultTags = []types.TagRequest{
	{Name: "Завтрак", Color: "#E26C2D", Slug: "breakfast"},
	{Name: "Обед", Color: "#49B64E", Slug: "lunch"},
	{Name: "Ужин", Color: "#8775D2", Slug: "dinner"},
}

var demoUsers = []types.RegisterRequest{
	{Email: "john.doe@example.com", Username: "johndoe", FirstName: "John", LastName: "Doe", Password: "testpassword123"},
	{Email: "jane.smith@example.com", Username: "janesmith", FirstName: "Jane", LastName: "Smith", Password: "testpassword123"},
}

func main() {
	withUsers := flag.Bool("users", false, "Also create demo users")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: "console", Timestamp: true})

	db, err := database.New(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.RunMigrations(db, cfg.Database.MigrationsDir); err != nil {
		logging.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx := context.Background()
	catalog := service.NewCatalogService(db)
	for i := range defaultTags {
		tag := defaultTags[i]
		if _, err := catalog.CreateTag(ctx, &tag); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				logging.Info().Str("slug", tag.Slug).Msg("tag already exists")
				continue
			}
			logging.Fatal().Err(err).Str("slug", tag.Slug).Msg("failed to create tag")
		}
		logging.Info().Str("slug", tag.Slug).Msg("created tag")
	}

	if !*withUsers {
		return
	}
	auth := service.NewAuthService(db, cfg.Auth.JWTSecret, time.Hour, nil)
	for i := range demoUsers {
		user := demoUsers[i]
		if _, err := auth.Register(ctx, &user); err != nil {
			if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrConflict) {
				logging.Info().Str("username", user.Username).Msg("user already exists")
				continue
			}
			logging.Fatal().Err(err).Str("username", user.Username).Msg("failed to create user")
		}
		logging.Info().Str("username", user.Username).Msg("created user")
	}
}
