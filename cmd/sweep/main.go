// Command sweep runs one expiry pass over remember tokens, login attempts and
// stale verification/reset tokens, for use from cron.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"mediloop/internal/app"
	"mediloop/internal/config"
	"mediloop/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.New(cfg.LogLevel, os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	if report := a.Sessions.SweepExpired(ctx); report.Failures > 0 {
		a.Close()
		os.Exit(1)
	}
}
