package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/younsl/ec2utils/internal/config"
	"github.com/younsl/ec2utils/internal/logger"
	"github.com/younsl/ec2utils/internal/models"
)

const (
	cacheFileMode os.FileMode = 0660
	cacheDirMode  os.FileMode = 0770
)

// Cache persists snapshots as JSON so that short-lived processes on the same
// host share one build. Freshness is judged by file modification time only.
type Cache struct {
	dir         string
	fallbackDir string
	file        string
	ttl         time.Duration
	now         func() time.Time
}

// NewCache creates a Cache from configuration
func NewCache(cfg config.CacheConfig) *Cache {
	return &Cache{
		dir:         cfg.Dir,
		fallbackDir: cfg.FallbackDir,
		file:        cfg.File,
		ttl:         cfg.TTL,
		now:         time.Now,
	}
}

func (c *Cache) dirs() []string {
	dirs := []string{c.dir}
	if c.fallbackDir != "" && c.fallbackDir != c.dir {
		dirs = append(dirs, c.fallbackDir)
	}
	return dirs
}

// Load returns the cached snapshot if a cache file younger than the TTL
// exists and parses. Anything else is a miss.
func (c *Cache) Load() (*models.InstanceSnapshot, bool) {
	log := logger.GetLogger()

	for _, dir := range c.dirs() {
		path := filepath.Join(dir, c.file)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if age := c.now().Sub(info.ModTime()); age >= c.ttl {
			log.Debug("Cache file is stale", zap.String("path", path), zap.Duration("age", age))
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Debug("Failed to read cache file", zap.String("path", path), zap.Error(err))
			continue
		}
		var snapshot models.InstanceSnapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			log.Debug("Ignoring unparsable cache file", zap.String("path", path), zap.Error(err))
			continue
		}

		log.Debug("Loaded instance data from cache", zap.String("path", path))
		return &snapshot, true
	}

	return nil, false
}

// Store writes the snapshot to the primary directory, or to the fallback
// directory when the primary one is not writable. It returns the path written.
func (c *Cache) Store(snapshot *models.InstanceSnapshot) (string, error) {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding instance data: %w", err)
	}

	log := logger.GetLogger()
	for _, dir := range c.dirs() {
		created, err := ensureDir(dir)
		if err != nil {
			log.Debug("Cannot create cache directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		if !isWritable(dir) {
			log.Debug("Cache directory is not writable", zap.String("dir", dir))
			continue
		}

		path := filepath.Join(dir, c.file)
		if err := os.WriteFile(path, data, cacheFileMode); err != nil {
			log.Debug("Failed to write cache file", zap.String("path", path), zap.Error(err))
			continue
		}

		// Permission fix-ups are best effort
		if err := os.Chmod(path, cacheFileMode); err != nil {
			log.Debug("Failed to chmod cache file", zap.String("path", path), zap.Error(err))
		}
		if created {
			_ = os.Chmod(dir, cacheDirMode)
		}
		return path, nil
	}

	return "", fmt.Errorf("no writable cache directory (tried %v)", c.dirs())
}

// Clear removes the cache file from every candidate directory
func (c *Cache) Clear() error {
	var errs []error
	for _, dir := range c.dirs() {
		path := filepath.Join(dir, c.file)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("error removing %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

// ensureDir creates dir when missing and reports whether it did
func ensureDir(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("%s is not a directory", dir)
		}
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := os.MkdirAll(dir, cacheDirMode); err != nil {
		return false, err
	}
	return true, nil
}
