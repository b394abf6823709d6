package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"stamper/internal/classify"
	"stamper/internal/config"
	"stamper/internal/crawler"
	"stamper/internal/drive"
	"stamper/internal/journal"
	"stamper/internal/logging"
	"stamper/internal/media"
	"stamper/internal/notifications"
	"stamper/internal/processor"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		LogDir: cfg.Paths.LogDir,
	})
}

// pipeline bundles the collaborators every remote-facing command needs.
type pipeline struct {
	cfg      *config.Config
	store    *drive.Client
	proc     *processor.Processor
	crawler  *crawler.Crawler
	journal  *journal.Store
	notifier notifications.Service
}

func (c *commandContext) buildPipeline(ctx context.Context, logger *slog.Logger) (*pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateRemote(); err != nil {
		return nil, fmt.Errorf("remote configuration: %w", err)
	}

	store, err := drive.NewClient(ctx, cfg.Drive.CredentialsFile, cfg.Drive.PageSize)
	if err != nil {
		return nil, fmt.Errorf("drive client: %w", err)
	}

	renderer, err := media.New(
		cfg.Overlay.FFmpegBinary,
		cfg.Overlay.FFprobeBinary,
		cfg.Overlay.FontPath,
		cfg.Overlay.FontSizeRatio,
		cfg.Overlay.WindowSeconds,
	)
	if err != nil {
		return nil, fmt.Errorf("overlay renderer: %w", err)
	}

	p := &pipeline{
		cfg:      cfg,
		store:    store,
		notifier: notifications.NewService(cfg),
	}
	if cfg.Journal.Enabled {
		journalStore, err := journal.Open(cfg.JournalPath())
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		p.journal = journalStore
	}

	classifier := classify.New(
		cfg.Classify.VideoExtensions,
		cfg.Classify.PromptExtensions,
		cfg.Classify.PromptMIMETypes,
	)
	p.proc = processor.New(cfg, store, renderer, logger,
		processor.WithClassifier(classifier),
		processor.WithJournal(p.journal),
		processor.WithNotifier(p.notifier),
	)
	p.crawler = crawler.New(cfg, store, p.proc, logger,
		crawler.WithJournal(p.journal),
		crawler.WithNotifier(p.notifier),
	)
	return p, nil
}

func (p *pipeline) Close(logger *slog.Logger) {
	if p.journal == nil {
		return
	}
	if err := p.journal.Close(); err != nil && logger != nil {
		logger.Warn("close journal", logging.Error(err))
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
