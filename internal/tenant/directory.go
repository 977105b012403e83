package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hiring_edge/internal/cache"
)

// Company is a registered tenant in the directory.
type Company struct {
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Directory answers "is this subdomain a registered tenant". It runs in
// the request pipeline before the decision engine so the engine itself
// stays free of I/O.
type Directory interface {
	// Lookup returns the company for a slug; ok is false for unknown or
	// inactive tenants. Errors are operational (database down), never
	// "not found".
	Lookup(ctx context.Context, slug string) (Company, bool, error)
}

// StaticDirectory is a fixed in-memory directory for tests and single
// tenant setups.
type StaticDirectory map[string]Company

// Lookup implements Directory.
func (d StaticDirectory) Lookup(ctx context.Context, slug string) (Company, bool, error) {
	c, ok := d[slug]
	return c, ok && c.Active, nil
}

// SQLDirectory reads tenants from Postgres with cache-aside on the shared
// cache.
type SQLDirectory struct {
	pool   *pgxpool.Pool
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewSQLDirectory builds the Postgres directory. The cache is optional;
// ttl bounds how stale a cached lookup may be.
func NewSQLDirectory(pool *pgxpool.Pool, c cache.Cache, ttl time.Duration, logger *slog.Logger) *SQLDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SQLDirectory{pool: pool, cache: c, ttl: ttl, logger: logger}
}

// cachedLookup is the cache payload; Found distinguishes a cached
// negative from a cache miss.
type cachedLookup struct {
	Company Company `json:"company"`
	Found   bool    `json:"found"`
}

// Lookup implements Directory.
func (d *SQLDirectory) Lookup(ctx context.Context, slug string) (Company, bool, error) {
	if slug == "" {
		return Company{}, false, nil
	}

	key := "tenant:" + slug

	if d.cache != nil {
		if raw, err := d.cache.Get(ctx, key); err == nil {
			var cached cachedLookup
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached.Company, cached.Found, nil
			}
		}
	}

	company, found, err := d.query(ctx, slug)
	if err != nil {
		return Company{}, false, err
	}

	if d.cache != nil {
		if raw, err := json.Marshal(cachedLookup{Company: company, Found: found}); err == nil {
			if err := d.cache.Set(ctx, key, raw, d.ttl); err != nil {
				d.logger.Warn("tenant lookup cache write failed", "slug", slug, "error", err)
			}
		}
	}

	return company, found, nil
}

func (d *SQLDirectory) query(ctx context.Context, slug string) (Company, bool, error) {
	var c Company
	err := d.pool.QueryRow(ctx,
		`SELECT slug, name, active FROM companies WHERE slug = $1`,
		slug,
	).Scan(&c.Slug, &c.Name, &c.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, false, nil
		}
		return Company{}, false, fmt.Errorf("tenant lookup failed: %w", err)
	}

	return c, c.Active, nil
}
