package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/MrEthical07/goSession/internal/config"
	"github.com/sirupsen/logrus"
)

func newLogger(cfg config.Log) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
