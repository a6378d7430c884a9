// Package catalog loads the static restaurant collection into memory.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/busantable/busantable/internal/domain"
	"github.com/busantable/busantable/internal/domain/restaurant"
)

// FileCatalog serves an in-memory snapshot of a JSON restaurant file.
// The snapshot is reloaded lazily once it is older than the reload
// interval; a failed reload keeps serving the previous snapshot.
type FileCatalog struct {
	path   string
	reload time.Duration // 0 disables reloading
	logger *zap.Logger

	mu       sync.RWMutex
	records  []restaurant.Restaurant
	loadedAt time.Time
}

// NewFile creates a file-backed catalog. Nothing is read until the first All call.
func NewFile(path string, reload time.Duration, logger *zap.Logger) *FileCatalog {
	return &FileCatalog{path: path, reload: reload, logger: logger}
}

// All returns the current snapshot. Callers must treat the returned slice
// as read-only. Returns domain.ErrCatalogUnavailable when no snapshot has
// ever loaded successfully.
func (c *FileCatalog) All(ctx context.Context) ([]restaurant.Restaurant, error) {
	c.mu.RLock()
	records, loadedAt := c.records, c.loadedAt
	c.mu.RUnlock()

	if records != nil && !c.stale(loadedAt) {
		return records, nil
	}

	return c.refresh(ctx, records)
}

func (c *FileCatalog) stale(loadedAt time.Time) bool {
	return c.reload > 0 && time.Since(loadedAt) > c.reload
}

func (c *FileCatalog) refresh(_ context.Context, prev []restaurant.Restaurant) ([]restaurant.Restaurant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if c.records != nil && !c.stale(c.loadedAt) {
		return c.records, nil
	}

	records, err := readFile(c.path)
	if err != nil {
		if prev != nil {
			c.logger.Warn("catalog reload failed, serving previous snapshot",
				zap.String("path", c.path), zap.Error(err))
			c.loadedAt = time.Now()
			return prev, nil
		}
		c.logger.Error("catalog load failed", zap.String("path", c.path), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}

	c.records = records
	c.loadedAt = time.Now()
	c.logger.Info("catalog loaded",
		zap.String("path", c.path), zap.Int("records", len(records)))
	return records, nil
}

func readFile(path string) ([]restaurant.Restaurant, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records []restaurant.Restaurant
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// Static wraps a fixed record slice as a catalog, for tests and batch runs.
type Static []restaurant.Restaurant

// All returns the wrapped records.
func (s Static) All(_ context.Context) ([]restaurant.Restaurant, error) {
	return s, nil
}
