package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/ws-lock/pkg/config"
	"github.com/doodlesbykumbi/ws-lock/pkg/db"
	"github.com/doodlesbykumbi/ws-lock/pkg/logging"
)

// loadLogger builds the process logger from the configuration, falling
// back to info/json when the configuration cannot be loaded.
func loadLogger() (*config.Config, zerolog.Logger) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid logging configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg, log
}

func connectDB(log zerolog.Logger) (*gorm.DB, error) {
	return db.Connect(db.Config{Logger: logging.GormLogger(log)})
}
