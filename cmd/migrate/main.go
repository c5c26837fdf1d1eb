package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/quatton/podium/pkg/db"
	"github.com/quatton/podium/pkg/plog"
)

func main() {
	rollback := flag.Bool("rollback", false, "Roll back the last migration group instead of migrating")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("ℹ No .env file found")
	} else {
		log.Println("✓ Loaded .env file")
	}

	ctx := context.Background()
	logger := plog.NewDefault()

	var cfg db.Config
	if err := envconfig.Process("DB", &cfg); err != nil {
		logger.Fatalf("failed to process env vars: %v", err)
	}

	database, err := db.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	if *rollback {
		if err := db.Rollback(ctx, database, logger); err != nil {
			logger.Fatalf("failed to roll back: %v", err)
		}
		return
	}

	logger.Info("running migrations", "database", cfg.Database, "host", cfg.Host)
	if err := db.Migrate(ctx, database, logger); err != nil {
		logger.Fatalf("failed to migrate: %v", err)
	}
	logger.Info("migrations completed")
}
