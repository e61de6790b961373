package main

import (
	"context"
	"os"

	"github.com/docdesk/docdesk/backend/go-services/internal/config"
	"github.com/docdesk/docdesk/backend/go-services/internal/database"
	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New("error", os.Stderr).Fatalf("failed to load config: %v", err)
	}
	log := logger.New(cfg.Log.Level, os.Stdout)
	if cfg.Postgres.URL == "" {
		log.Fatalf("DATABASE_URL is required")
	}

	ctx := context.Background()
	db, err := database.ConnectPostgres(ctx, cfg.Postgres.URL, database.PoolOptionsFromConfig(cfg.Postgres))
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := database.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	log.Infof("migrations applied")
}
