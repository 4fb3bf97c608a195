// Package bootstrap builds the infrastructure shared by the api and
// scheduler binaries.
package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"leadcrm_backend/internal/leads/distribution"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/notification/inapp"
	"leadcrm_backend/migrations"
	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/db"
	"leadcrm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// StoreConfig combines the settings needed to open the stores.
type StoreConfig interface {
	config.DatabaseConfig
	config.LeadsConfig
}

// Stores holds the lead and notification stores plus the pool behind
// them, if any.
type Stores struct {
	Leads         repository.LeadStore
	Notifications inapp.Store
	Pool          *pgxpool.Pool
}

// Ping implements the readiness check. Memory stores are always ready.
func (s *Stores) Ping(ctx context.Context) error {
	if s.Pool == nil {
		return nil
	}
	return s.Pool.Ping(ctx)
}

// Close releases the pool.
func (s *Stores) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// OpenStores connects to Postgres and applies migrations, or builds the
// in-process stores when the memory backend is selected.
func OpenStores(ctx context.Context, cfg StoreConfig, log *logger.Logger) (*Stores, error) {
	if cfg.GetStoreBackend() == config.StoreBackendMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return &Stores{
			Leads:         repository.NewMemory(),
			Notifications: inapp.NewMemoryStore(),
		}, nil
	}

	var pool *pgxpool.Pool
	if err := WithRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.DatabaseError("connect", err)
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("database connection established")

	if err := WithRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS, log)
	}); err != nil {
		log.DatabaseError("migrate", err)
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info("database migrations complete")

	return &Stores{
		Leads:         repository.New(pool),
		Notifications: inapp.NewRepository(pool),
		Pool:          pool,
	}, nil
}

// NewRedisClient returns nil when Redis is not configured.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.IsRedisEnabled() {
		return nil, nil
	}
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt), nil
}

// NewLocker returns a Redis-backed distribution lock when a client is
// available. Without one, locking is process-local only.
func NewLocker(client *redis.Client, log *logger.Logger) distribution.Locker {
	if client == nil {
		log.Warn("REDIS_URL not configured; distribution lock is process-local")
		return distribution.NoopLocker{}
	}
	return distribution.NewRedisLocker(client)
}

// WithRetry runs fn until it succeeds, backing off quadratically.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
