// Package daemon runs the crawl loop as a long-lived background job and
// enforces single-instance execution via a file lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"

	"stamper/internal/config"
	"stamper/internal/crawler"
	"stamper/internal/logging"
)

// Daemon owns the crawl loop lifecycle.
type Daemon struct {
	cfg     *config.Config
	crawler *crawler.Crawler
	logger  *slog.Logger

	lockPath string
	lock     *flock.Flock
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, c *crawler.Crawler, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || c == nil {
		return nil, errors.New("daemon requires config and crawler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "stamper.lock")
	return &Daemon{
		cfg:      cfg,
		crawler:  c,
		logger:   logger,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// LockPath returns the lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Run acquires the instance lock and drives crawl passes until the context is
// cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another stamper instance is already running")
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("release lock failed", logging.Error(err))
		}
	}()

	d.logger.Info("daemon started", logging.String("lock_file", d.lockPath))
	err = d.crawler.Run(ctx)
	if errors.Is(err, context.Canceled) {
		d.logger.Info("daemon shutting down")
		return nil
	}
	return err
}
