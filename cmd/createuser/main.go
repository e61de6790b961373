package main

import (
	"context"
	"flag"
	"os"

	"github.com/docdesk/docdesk/backend/go-services/internal/config"
	"github.com/docdesk/docdesk/backend/go-services/internal/database"
	"github.com/docdesk/docdesk/backend/go-services/internal/users"
	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
)

func main() {
	var in users.NewUser
	flag.StringVar(&in.Username, "username", "", "login name (required)")
	flag.StringVar(&in.Email, "email", "", "email address")
	flag.StringVar(&in.FirstName, "first-name", "", "first name")
	flag.StringVar(&in.LastName, "last-name", "", "last name")
	flag.BoolVar(&in.IsSuperuser, "superuser", false, "grant superuser rights")
	flag.Parse()
	in.Password = os.Getenv("CREATEUSER_PASSWORD")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New("error", os.Stderr).Fatalf("failed to load config: %v", err)
	}
	log := logger.New(cfg.Log.Level, os.Stdout)
	if cfg.Postgres.URL == "" {
		log.Fatalf("DATABASE_URL is required")
	}
	if in.Password == "" {
		log.Fatalf("CREATEUSER_PASSWORD must be set")
	}

	ctx := context.Background()
	db, err := database.ConnectPostgres(ctx, cfg.Postgres.URL, database.PoolOptionsFromConfig(cfg.Postgres))
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer func() { _ = db.Close() }()

	u, err := users.NewService(users.NewPostgresRepository(db)).Create(ctx, in)
	if err != nil {
		log.Fatalf("create user: %v", err)
	}
	log.Infof("created user %s (id %d)", u.Username, u.ID)
}
