package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"hiring_edge/internal/routing"
)

// TablesReloader watches the route tables file and swaps new tables into
// the engine when the file changes. A bad file keeps the last good tables
// in place.
type TablesReloader struct {
	file   string
	engine *routing.Engine
	logger *slog.Logger

	mu       sync.Mutex
	lastMod  time.Time
	lastSize int64
}

// NewTablesReloader builds a reloader for the given tables file.
func NewTablesReloader(file string, engine *routing.Engine, logger *slog.Logger) *TablesReloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &TablesReloader{file: file, engine: engine, logger: logger}
}

// Task wraps the reloader as a scheduler task running at the given
// interval.
func (r *TablesReloader) Task(interval time.Duration) *Task {
	return &Task{
		ID:       "route-tables-reload",
		Schedule: Every(interval),
		Run:      r.Reload,
		Timeout:  10 * time.Second,
	}
}

// Reload checks the file for changes and replaces the engine's tables
// when it has been modified since the last successful load.
func (r *TablesReloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := os.Stat(r.file)
	if err != nil {
		return fmt.Errorf("stat route tables: %w", err)
	}

	if info.ModTime().Equal(r.lastMod) && info.Size() == r.lastSize {
		return nil
	}

	tables, err := routing.LoadTables(r.file)
	if err != nil {
		return fmt.Errorf("load route tables: %w", err)
	}

	r.engine.ReplaceTables(tables)
	r.lastMod = info.ModTime()
	r.lastSize = info.Size()

	r.logger.Info("route tables reloaded",
		"file", r.file,
		"modified", info.ModTime().Format(time.RFC3339),
	)
	return nil
}
