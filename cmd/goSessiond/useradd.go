package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/MrEthical07/goSession/directory"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/internal/db"
	"github.com/MrEthical07/goSession/password"
)

// runUserAdd creates a user in the Postgres directory. The password is read
// from GOSESSION_USERADD_PASSWORD so it stays out of shell history.
func runUserAdd(args []string) error {
	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional config file")
	email := fs.String("email", "", "user email")
	verified := fs.Bool("verified", false, "mark the email as verified")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw := os.Getenv("GOSESSION_USERADD_PASSWORD")
	if *email == "" || pw == "" {
		return errors.New("-email and GOSESSION_USERADD_PASSWORD are required")
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

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{URL: settings.Postgres.URL, MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}

	user, err := directory.NewPostgres(pool, hasher).CreateUser(ctx, *email, pw, *verified)
	if err != nil {
		return err
	}
	log.WithField("user_id", user.ID).Info("user created")
	return nil
}
