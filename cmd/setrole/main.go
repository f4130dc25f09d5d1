package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"marketplace/internal/config"
	"marketplace/internal/db"
	"marketplace/internal/logging"
	"marketplace/internal/repository"
	"marketplace/internal/seed"
)

func main() {
	email := flag.String("email", "", "email of the user to update")
	role := flag.String("role", "admin", "new role: user, trusted, moderator, admin or owner")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: setrole -email user@example.com [-role admin]")
		os.Exit(2)
	}

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	user, err := seed.SetRole(context.Background(), repository.NewStore(gormDB), *email, *role)
	if err != nil {
		log.WithError(err).WithField("email", *email).Fatal("Failed to update role")
	}
	log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User role updated")
}
