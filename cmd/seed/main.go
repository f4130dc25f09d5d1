package main

import (
	"context"
	"flag"

	"marketplace/internal/config"
	"marketplace/internal/db"
	"marketplace/internal/logging"
	"marketplace/internal/repository"
	"marketplace/internal/seed"
)

func main() {
	reset := flag.Bool("reset", false, "drop all tables before seeding")
	flag.Parse()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	log.Info("Starting seed script...")

	// Connect to database
	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	log.Info("Connected to database")

	if *reset || cfg.ResetDB {
		db.Reset(gormDB, log)
	}

	// Run migrations to ensure schema is up to date
	if err := db.Migrate(gormDB); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}
	log.Info("Database migrations completed")

	res, err := seed.Run(context.Background(), repository.NewStore(gormDB), log)
	if err != nil {
		log.WithError(err).Fatal("Failed to seed database")
	}

	log.Info("Seed completed successfully!")
	log.Infof("  - Categories created: %d, updated: %d", res.CategoriesSeeded, res.CategoriesUpdated)
	log.Infof("  - Users created: %d, already present: %d", res.UsersSeeded, res.UsersExisting)
	log.Infof("  - Sample posts created: %d", res.PostsSeeded)
}
