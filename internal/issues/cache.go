package issues

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Cache memoizes loaded tables per file. An entry stays valid while the file's
// modification time and size are unchanged; a changed file is reloaded on the
// next Get. The returned tables are shared and must not be mutated.
type Cache struct {
	mu      sync.Mutex
	opts    LoadOptions
	logger  *zap.Logger
	entries map[string]cacheEntry
	loads   int
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	table   *Table
}

// NewCache creates an empty cache. A nil logger discards log output.
func NewCache(opts LoadOptions, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		opts:    opts,
		logger:  logger,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the table for path, loading it on first use or when the file
// changed since it was cached.
func (c *Cache) Get(ctx context.Context, path string) (*Table, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	info, err := os.Stat(absPath)
	if err != nil {
		c.Invalidate(absPath)
		return nil, &LoadError{Path: absPath, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[absPath]; ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		return e.table, nil
	}

	start := time.Now()
	table, err := Load(ctx, absPath, c.opts)
	if err != nil {
		delete(c.entries, absPath)
		return nil, err
	}
	c.loads++
	c.entries[absPath] = cacheEntry{modTime: info.ModTime(), size: info.Size(), table: table}

	c.logger.Info("loaded issues",
		zap.String("path", absPath),
		zap.Int("records", table.Len()),
		zap.String("size", humanize.Bytes(uint64(info.Size()))),
		zap.Bool("has_created", table.HasCreated),
		zap.Duration("took", time.Since(start)),
	)
	return table, nil
}

// Invalidate drops the cached table for path, if any.
func (c *Cache) Invalidate(path string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[absPath]; ok {
		delete(c.entries, absPath)
		c.logger.Debug("invalidated cached issues", zap.String("path", absPath))
	}
}

// Loads returns how many times a file was actually read.
func (c *Cache) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}
