package config

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates the tenant directory connection pool, retrying with
// exponential backoff so a slow-starting database does not kill the edge.
func NewPool(cfg *DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("initializing tenant directory pool",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
		"health_check_period", cfg.HealthCheckPeriod.String(),
	)

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		cancel()

		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = pool.Ping(pingCtx)
			pingCancel()

			if err == nil {
				logger.Info("tenant directory pool ready", "attempt", attempt)
				return pool, nil
			}
			pool.Close()
			lastErr = fmt.Errorf("failed to ping database (attempt %d/%d): %w", attempt, cfg.MaxRetries, err)
		} else {
			lastErr = fmt.Errorf("failed to create pool (attempt %d/%d): %w", attempt, cfg.MaxRetries, err)
		}

		logger.Warn("tenant directory connection failed",
			"attempt", attempt,
			"max_retries", cfg.MaxRetries,
			"error", err,
		)

		if attempt < cfg.MaxRetries {
			delay := calculateBackoff(cfg.RetryDelay, attempt)
			logger.Info("retrying database connection", "delay", delay.String())
			time.Sleep(delay)
		}
	}

	return nil, lastErr
}

// calculateBackoff doubles the base delay per attempt, capped at 30s.
func calculateBackoff(base time.Duration, attempt int) time.Duration {
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
