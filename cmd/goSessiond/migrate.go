package main

import (
	"errors"
	"flag"

	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/internal/db/migrate"
)

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional config file")
	direction := fs.String("direction", "up", "up or down")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if settings.Postgres.URL == "" {
		return errors.New("postgres.url is not set")
	}

	log, err := newLogger(settings.Log)
	if err != nil {
		return err
	}
	if err := migrate.Run(settings.Postgres.URL, *direction); err != nil {
		return err
	}
	log.WithField("direction", *direction).Info("migrations applied")
	return nil
}
