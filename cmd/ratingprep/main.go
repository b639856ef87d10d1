package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/JonMunkholm/ratingprep/internal/cli"
	"github.com/JonMunkholm/ratingprep/internal/config"
	"github.com/JonMunkholm/ratingprep/internal/logging"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err == nil {
		slog.Debug("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := cli.Execute(context.Background(), cfg); err != nil {
		os.Exit(1)
	}
}
