package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PoolConfig struct {
	MaxConns          int
	MinConns          int
	HealthCheckPeriod time.Duration
	PoolTimeout       time.Duration
	// RetryAttempts 0 означает бесконечные попытки.
	RetryAttempts   int
	RetryDelay      time.Duration
	MaxRetryDelay   time.Duration
	ApplicationName string
}

func (c *PoolConfig) applyDefaults() {
	if c.MaxConns <= 0 {
		c.MaxConns = 20
	}
	if c.MinConns < 0 {
		c.MinConns = 2
	}
	if c.HealthCheckPeriod <= 0 {
		c.HealthCheckPeriod = 30 * time.Second
	}
	if c.PoolTimeout <= 0 {
		c.PoolTimeout = 5 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.MaxRetryDelay < c.RetryDelay {
		c.MaxRetryDelay = c.RetryDelay
	}
}

// backoff экспоненциальная задержка перед попыткой attempt (с нуля), не больше MaxRetryDelay.
func (c *PoolConfig) backoff(attempt int) time.Duration {
	delay := c.RetryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= c.MaxRetryDelay {
			return c.MaxRetryDelay
		}
	}
	return delay
}

func NewPool(ctx context.Context, dsn string, cfg PoolConfig, log *slog.Logger) (*pgxpool.Pool, error) {
	cfg.applyDefaults()

	conf, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось распарсить DSN: %w", err)
	}

	conf.MaxConns = int32(cfg.MaxConns)
	conf.MinConns = int32(cfg.MinConns)
	conf.HealthCheckPeriod = cfg.HealthCheckPeriod
	conf.MaxConnLifetime = 30 * time.Minute
	conf.MaxConnIdleTime = 5 * time.Minute
	if cfg.ApplicationName != "" {
		conf.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}
	conf.ConnConfig.ConnectTimeout = cfg.PoolTimeout

	for attempt := 0; cfg.RetryAttempts == 0 || attempt < cfg.RetryAttempts; attempt++ {
		var pool *pgxpool.Pool
		pool, err = pgxpool.NewWithConfig(ctx, conf)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.Info("подключение к базе данных успешно", slog.Int("attempt", attempt+1))
				return pool, nil
			}
			pool.Close()
		}

		delay := cfg.backoff(attempt)
		log.Warn("база данных недоступна, повтор",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", cfg.RetryAttempts),
			slog.Duration("retry_in", delay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("подключение к БД прервано: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("не удалось создать пул соединений после %d попыток: %w", cfg.RetryAttempts, err)
}
