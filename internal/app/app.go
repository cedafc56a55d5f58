// Package app wires configuration, storage and the auth stack into one
// place so every binary assembles the same object graph.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"mediloop/internal/auth"
	"mediloop/internal/config"
	"mediloop/internal/database"
	"mediloop/internal/donation"
	"mediloop/internal/email"
	"mediloop/internal/metrics"
)

const (
	verificationTTL = 24 * time.Hour
	resetTTL        = time.Hour
	auditMaxLen     = 1000
)

type App struct {
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Metrics   *metrics.Recorder
	Sessions  *auth.SessionManager
	Auth      *auth.Service
	Donations *donation.Repository
}

// New connects to Postgres and Redis and builds the services on top of them.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	rdb, err := connectRedis(ctx, cfg.RedisURL)
	if err != nil {
		db.Close()
		return nil, err
	}

	rec := metrics.New()
	users := auth.NewUserRepository(db)
	limiter := auth.NewRateLimiter(auth.NewAttemptRepository(db), logger)
	manager := &auth.SessionManager{
		Sessions:    auth.NewRedisSessionStore(rdb, cfg.SessionTTL),
		Remember:    auth.NewRememberTokenRepository(db),
		Users:       users,
		Limiter:     limiter,
		Metrics:     rec,
		Logger:      logger,
		Now:         time.Now,
		SessionTTL:  cfg.SessionTTL,
		RememberTTL: cfg.RememberTTL,
	}

	svc := &auth.Service{
		Users:                 users,
		Sessions:              manager,
		Limiter:               limiter,
		Hasher:                auth.NewBcryptHasher(cfg.BcryptCost),
		Audit:                 &auth.AuditLogger{Redis: rdb, MaxLen: auditMaxLen, Now: time.Now},
		Metrics:               rec,
		Logger:                logger,
		Now:                   time.Now,
		BaseURL:               cfg.BaseURL,
		SkipEmailVerification: cfg.NoEmailVerify,
		VerificationTTL:       verificationTTL,
		ResetTTL:              resetTTL,
	}
	if cfg.Email.Enabled() {
		svc.Mailer = &email.AuthMailer{
			Transport:       email.NewSender(cfg.Email),
			VerificationTTL: verificationTTL,
			ResetTTL:        resetTTL,
		}
	} else {
		logger.Warn("email is not configured; verification and reset links will not be delivered")
	}

	return &App{
		DB:        db,
		Redis:     rdb,
		Metrics:   rec,
		Sessions:  manager,
		Auth:      svc,
		Donations: donation.NewRepository(db),
	}, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}
