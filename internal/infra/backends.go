package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Backends holds the optional external services. A nil field means the
// backend was not configured.
type Backends struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
}

// Connect opens every backend whose URL is non-empty. On failure anything
// already opened is closed again.
func Connect(ctx context.Context, databaseURL, redisURL string, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}
	if databaseURL != "" {
		db, err := NewPostgresPool(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		b.DB = db
		logger.Info("postgres connected")
	}
	if redisURL != "" {
		cache, err := NewRedisClient(ctx, redisURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Cache = cache
		logger.Info("redis connected")
	}
	return b, nil
}

// Health pings each configured backend and returns a status per backend name.
// Unconfigured backends report "disabled".
func (b *Backends) Health(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := map[string]string{"postgres": "disabled", "redis": "disabled"}
	healthy := true
	if b == nil {
		return status, healthy
	}
	if b.DB != nil {
		status["postgres"] = "ok"
		if err := b.DB.Ping(ctx); err != nil {
			status["postgres"] = err.Error()
			healthy = false
		}
	}
	if b.Cache != nil {
		status["redis"] = "ok"
		if err := b.Cache.Ping(ctx).Err(); err != nil {
			status["redis"] = err.Error()
			healthy = false
		}
	}
	return status, healthy
}

// Close releases every open backend.
func (b *Backends) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	if b.Cache != nil {
		if err := b.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if b.DB != nil {
		b.DB.Close()
	}
	return errors.Join(errs...)
}
