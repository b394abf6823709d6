// Package crawler walks the remote folder tree in repeated passes and hands
// unprocessed folders to the node processor. A folder counts as processed
// when it contains the completion marker; the in-run tracker only suppresses
// repeat marker checks, the remote marker always wins.
package crawler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stamper/internal/config"
	"stamper/internal/drive"
	"stamper/internal/journal"
	"stamper/internal/logging"
	"stamper/internal/notifications"
	"stamper/internal/processor"
	"stamper/internal/retry"
)

// NodeProcessor is the per-folder pipeline surface the crawler drives.
type NodeProcessor interface {
	Process(ctx context.Context, folderID, folderName string) error
}

// Crawler enumerates the folder tree and applies the check-then-process rule
// to every node.
type Crawler struct {
	cfg         *config.Config
	store       drive.API
	proc        NodeProcessor
	tracker     *Tracker
	journal     *journal.Store
	notifier    notifications.Service
	logger      *slog.Logger
	policy      retry.Policy
	interval    time.Duration
	errInterval time.Duration

	rootLabel string
}

// Option configures optional crawler collaborators.
type Option func(*Crawler)

// WithJournal attaches the processing journal.
func WithJournal(store *journal.Store) Option {
	return func(c *Crawler) { c.journal = store }
}

// WithNotifier attaches a notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(c *Crawler) {
		if notifier != nil {
			c.notifier = notifier
		}
	}
}

// WithPolicy overrides the retry policy for remote calls and for the
// per-folder procedure as a whole.
func WithPolicy(policy retry.Policy) Option {
	return func(c *Crawler) { c.policy = policy }
}

// WithPassInterval overrides the idle delay between passes.
func WithPassInterval(interval time.Duration) Option {
	return func(c *Crawler) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithErrorRetryInterval overrides the shorter idle delay used after a pass
// that recorded failures.
func WithErrorRetryInterval(interval time.Duration) Option {
	return func(c *Crawler) {
		if interval > 0 {
			c.errInterval = interval
		}
	}
}

// New constructs a crawler rooted at cfg.Drive.RootFolderID.
func New(cfg *config.Config, store drive.API, proc NodeProcessor, logger *slog.Logger, opts ...Option) *Crawler {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Crawler{
		cfg:         cfg,
		store:       store,
		proc:        proc,
		tracker:     NewTracker(),
		notifier:    notifications.NewService(cfg),
		logger:      logger,
		policy:      retry.Default(),
		interval:    time.Duration(cfg.Workflow.PassIntervalSeconds) * time.Second,
		errInterval: time.Duration(cfg.Workflow.ErrorRetryIntervalSeconds) * time.Second,
	}
	if cfg.Retry.MaxAttempts > 0 {
		c.policy.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.BaseDelaySeconds > 0 {
		c.policy.BaseDelay = time.Duration(cfg.Retry.BaseDelaySeconds) * time.Second
	}
	if cfg.Retry.MaxDelaySeconds > 0 {
		c.policy.MaxDelay = time.Duration(cfg.Retry.MaxDelaySeconds) * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tracker exposes the completion tracker, primarily for status reporting.
func (c *Crawler) Tracker() *Tracker {
	return c.tracker
}

// Run executes crawl passes until the context is cancelled. The crawl never
// terminates on its own; stopping is an operational concern.
func (c *Crawler) Run(ctx context.Context) error {
	c.logger.Info("crawl loop started",
		logging.String("root_folder", c.cfg.Drive.RootFolderID),
		logging.Duration("pass_interval", c.interval),
	)
	for {
		failures := c.RunPass(ctx)
		wait := c.interval
		if failures > 0 && c.errInterval > 0 && c.errInterval < c.interval {
			wait = c.errInterval
		}
		select {
		case <-ctx.Done():
			c.logger.Info("crawl loop stopped")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RunPass visits the root and every descendant folder once, applying the
// check-then-process rule to each. Per-node failures never abort the pass;
// the returned count of failed nodes and enumeration errors drives the
// shorter error-retry idle interval.
func (c *Crawler) RunPass(ctx context.Context) int {
	start := time.Now()
	visited := 0
	failures := 0

	worklist := []drive.Entry{{
		ID:   c.cfg.Drive.RootFolderID,
		Name: c.rootName(ctx),
	}}
	for len(worklist) > 0 {
		if ctx.Err() != nil {
			return failures
		}
		node := worklist[0]
		worklist = worklist[1:]
		visited++

		if !c.visit(ctx, node) {
			failures++
		}

		subfolders, err := c.listFolders(ctx, node.ID)
		if err != nil {
			// Conservative: unknown subtrees stay unknown until the next
			// pass; the failure is reported, never swallowed silently.
			c.logger.Warn("subfolder enumeration failed",
				logging.String("folder_id", node.ID),
				logging.Error(err),
			)
			failures++
			continue
		}
		worklist = append(worklist, subfolders...)
	}

	c.logger.Info("pass complete",
		logging.Int("folders_visited", visited),
		logging.Int("failed", failures),
		logging.Int("known_complete", c.tracker.Len()),
		logging.Duration("elapsed", time.Since(start)),
	)
	return failures
}

// visit reports false only for unexpected per-node failures; skipped,
// completed, and missing-input folders all count as clean.
func (c *Crawler) visit(ctx context.Context, node drive.Entry) bool {
	logger := c.logger.With(
		logging.String("folder_id", node.ID),
		logging.String("folder_name", node.Name),
	)

	if c.tracker.Known(node.ID) {
		return true
	}

	marker, err := c.markerExists(ctx, node.ID)
	if err != nil {
		logger.Warn("completion check failed, treating folder as incomplete",
			logging.Error(err))
		c.record(ctx, logger, node, journal.OutcomeMarkerError, err.Error())
	} else if marker {
		c.tracker.Mark(node.ID)
		return true
	}

	// The whole folder procedure is retried as a unit so a half-failed
	// attempt restarts from the download step, not mid-sequence.
	err = c.policy.Do(ctx, drive.IsTransient, func(ctx context.Context) error {
		return c.proc.Process(ctx, node.ID, node.Name)
	})
	switch {
	case err == nil:
		c.tracker.Mark(node.ID)
	case errors.Is(err, processor.ErrMissingInput):
		// Expected: the folder will be retried once its inputs appear.
	case errors.Is(err, context.Canceled):
	default:
		logger.Error("folder processing failed", logging.Error(err))
		c.record(ctx, logger, node, journal.OutcomeFailed, err.Error())
		if notifyErr := c.notifier.NotifyError(ctx, err, "processing "+node.Name); notifyErr != nil {
			logger.Warn("error notification failed", logging.Error(notifyErr))
		}
		return false
	}
	return true
}

func (c *Crawler) markerExists(ctx context.Context, folderID string) (bool, error) {
	var exists bool
	err := c.policy.Do(ctx, drive.IsTransient, func(ctx context.Context) error {
		var checkErr error
		exists, checkErr = c.store.HasChild(ctx, folderID, c.cfg.Drive.MarkerName)
		return checkErr
	})
	return exists, err
}

func (c *Crawler) listFolders(ctx context.Context, folderID string) ([]drive.Entry, error) {
	var folders []drive.Entry
	err := c.policy.Do(ctx, drive.IsTransient, func(ctx context.Context) error {
		var listErr error
		folders, listErr = c.store.ListFolders(ctx, folderID)
		return listErr
	})
	return folders, err
}

func (c *Crawler) rootName(ctx context.Context) string {
	if c.rootLabel != "" {
		return c.rootLabel
	}
	var name string
	err := c.policy.Do(ctx, drive.IsTransient, func(ctx context.Context) error {
		var nameErr error
		name, nameErr = c.store.FolderName(ctx, c.cfg.Drive.RootFolderID)
		return nameErr
	})
	if err != nil || name == "" {
		c.logger.Warn("root folder name lookup failed, using its ID",
			logging.Error(err))
		return c.cfg.Drive.RootFolderID
	}
	c.rootLabel = name
	return name
}

func (c *Crawler) record(ctx context.Context, logger *slog.Logger, node drive.Entry, outcome journal.Outcome, detail string) {
	if err := c.journal.Record(ctx, node.ID, node.Name, outcome, detail); err != nil {
		logger.Warn("journal write failed", logging.Error(err))
	}
}
