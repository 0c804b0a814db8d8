// Command importcsv bulk-loads the ingredient catalog from a two-column
// (name, measurement unit) CSV file. Rows already present are skipped, so the
// command can be rerun safely.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	path := flag.String("file", "data/ingredients.csv", "CSV file with name,unit rows")
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

	f, err := os.Open(*path)
	if err != nil {
		logging.Fatal().Err(err).Str("file", *path).Msg("failed to open CSV")
	}
	defer f.Close()

	stats, err := service.NewCatalogService(db).ImportIngredients(context.Background(), f)
	if err != nil {
		logging.Fatal().Err(err).Str("file", *path).Msg("import failed")
	}
	logging.Info().
		Int("created", stats.Created).
		Int("skipped", stats.Skipped).
		Msg("ingredients imported")
}
