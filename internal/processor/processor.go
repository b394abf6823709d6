// Package processor turns one remote folder into a published overlay video:
// it classifies the folder's children, downloads the first-seen video and
// prompt pair, renders the overlay, uploads the result back into the folder
// (whose presence is the completion marker) and mirrors it to the local
// archive.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"stamper/internal/classify"
	"stamper/internal/config"
	"stamper/internal/drive"
	"stamper/internal/fileutil"
	"stamper/internal/journal"
	"stamper/internal/logging"
	"stamper/internal/media"
	"stamper/internal/notifications"
	"stamper/internal/retry"
	"stamper/internal/textutil"
)

// ErrMissingInput reports that a folder lacks a qualifying video or prompt
// file. It is an expected condition, not a failure: the folder stays
// unmarked and is retried on a later pass once inputs appear.
var ErrMissingInput = errors.New("missing required input")

const uploadMIMEType = "video/mp4"

// Processor executes the per-folder pipeline.
type Processor struct {
	cfg        *config.Config
	store      drive.API
	renderer   media.Renderer
	classifier *classify.Classifier
	journal    *journal.Store
	notifier   notifications.Service
	logger     *slog.Logger
	policy     retry.Policy
}

// Option configures optional processor collaborators.
type Option func(*Processor)

// WithJournal attaches the processing journal.
func WithJournal(store *journal.Store) Option {
	return func(p *Processor) { p.journal = store }
}

// WithNotifier attaches a notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(p *Processor) {
		if notifier != nil {
			p.notifier = notifier
		}
	}
}

// WithPolicy overrides the retry policy for remote calls.
func WithPolicy(policy retry.Policy) Option {
	return func(p *Processor) { p.policy = policy }
}

// WithClassifier overrides the role classifier.
func WithClassifier(classifier *classify.Classifier) Option {
	return func(p *Processor) {
		if classifier != nil {
			p.classifier = classifier
		}
	}
}

// New constructs a processor.
func New(cfg *config.Config, store drive.API, renderer media.Renderer, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Processor{
		cfg:        cfg,
		store:      store,
		renderer:   renderer,
		classifier: classify.New(cfg.Classify.VideoExtensions, cfg.Classify.PromptExtensions, cfg.Classify.PromptMIMETypes),
		notifier:   notifications.NewService(cfg),
		logger:     logger,
		policy:     policyFromConfig(cfg),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func policyFromConfig(cfg *config.Config) retry.Policy {
	policy := retry.Default()
	if cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.BaseDelaySeconds > 0 {
		policy.BaseDelay = secondsToDuration(cfg.Retry.BaseDelaySeconds)
	}
	if cfg.Retry.MaxDelaySeconds > 0 {
		policy.MaxDelay = secondsToDuration(cfg.Retry.MaxDelaySeconds)
	}
	return policy
}

// Process runs the full pipeline for one folder. The returned error wraps
// ErrMissingInput when the folder lacks a qualifying input pair; any other
// error leaves the folder unmarked for a later pass.
func (p *Processor) Process(ctx context.Context, folderID, folderName string) error {
	logger := p.logger.With(
		logging.String("folder_id", folderID),
		logging.String("folder_name", folderName),
	)

	var children []drive.Entry
	err := p.policy.Do(ctx, drive.IsTransient, func(ctx context.Context) error {
		var listErr error
		children, listErr = p.store.ListChildren(ctx, folderID)
		return listErr
	})
	if err != nil {
		return fmt.Errorf("list folder children: %w", err)
	}

	video, prompt, err := p.selectPair(children)
	if err != nil {
		logger.Info("folder lacks a qualifying input pair, deferring",
			logging.Error(err))
		p.record(ctx, logger, folderID, folderName, journal.OutcomeMissingInput, err.Error())
		return err
	}

	workspace := filepath.Join(p.cfg.Paths.WorkspaceDir, uuid.NewString())
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			logger.Warn("workspace cleanup failed", logging.Error(err))
		}
	}()

	videoPath := filepath.Join(workspace, localVideoName(video.Name))
	if err := p.download(ctx, video, videoPath, false); err != nil {
		return fmt.Errorf("download video %q: %w", video.Name, err)
	}

	promptPath := filepath.Join(workspace, "prompt.txt")
	exportAsText := prompt.MIMEType == drive.MIMETypeGoogleDoc
	if err := p.download(ctx, prompt, promptPath, exportAsText); err != nil {
		return fmt.Errorf("download prompt %q: %w", prompt.Name, err)
	}

	promptBytes, err := os.ReadFile(promptPath)
	if err != nil {
		return fmt.Errorf("read prompt text: %w", err)
	}
	promptText := strings.TrimSpace(string(promptBytes))

	outputPath := filepath.Join(workspace, p.cfg.Drive.MarkerName)
	renderReq := media.OverlayRequest{
		InputPath:  videoPath,
		OutputPath: outputPath,
		NameLine:   "Name: " + folderName,
		PromptLine: "Prompt Structure: " + promptText,
	}
	if err := p.renderer.Render(ctx, renderReq); err != nil {
		return fmt.Errorf("render overlay: %w", err)
	}

	var uploadedID string
	err = p.policy.Do(ctx, drive.IsTransient, func(ctx context.Context) error {
		var uploadErr error
		uploadedID, uploadErr = p.store.Upload(ctx, outputPath, folderID, uploadMIMEType)
		return uploadErr
	})
	if err != nil {
		return fmt.Errorf("upload result: %w", err)
	}
	logger.Info("final video uploaded", logging.String("uploaded_id", uploadedID))

	if err := p.archive(outputPath, folderName); err != nil {
		// The remote marker already exists; only the local mirror is missing.
		return fmt.Errorf("archive result: %w", err)
	}

	p.record(ctx, logger, folderID, folderName, journal.OutcomeProcessed, "")
	if err := p.notifier.NotifyFolderProcessed(ctx, textutil.DisplayTitle(folderName)); err != nil {
		logger.Warn("processed notification failed", logging.Error(err))
	}
	logger.Info("folder processed")
	return nil
}

// selectPair picks the first-seen video and prompt entries in listing order.
func (p *Processor) selectPair(children []drive.Entry) (drive.Entry, drive.Entry, error) {
	var video, prompt *drive.Entry
	for i := range children {
		entry := children[i]
		if entry.IsFolder() {
			continue
		}
		switch p.classifier.Classify(entry.Name, entry.MIMEType) {
		case classify.RoleVideo:
			if video == nil {
				video = &entry
			}
		case classify.RolePrompt:
			if prompt == nil {
				prompt = &entry
			}
		}
	}
	switch {
	case video == nil && prompt == nil:
		return drive.Entry{}, drive.Entry{}, fmt.Errorf("%w: no video or prompt file", ErrMissingInput)
	case video == nil:
		return drive.Entry{}, drive.Entry{}, fmt.Errorf("%w: no video file", ErrMissingInput)
	case prompt == nil:
		return drive.Entry{}, drive.Entry{}, fmt.Errorf("%w: no prompt file", ErrMissingInput)
	}
	return *video, *prompt, nil
}

func (p *Processor) download(ctx context.Context, entry drive.Entry, destPath string, exportAsText bool) error {
	return p.policy.Do(ctx, drive.IsTransient, func(ctx context.Context) error {
		if exportAsText {
			return p.store.ExportText(ctx, entry.ID, destPath)
		}
		return p.store.Download(ctx, entry.ID, destPath)
	})
}

func (p *Processor) archive(outputPath, folderName string) error {
	if err := fileutil.EnsureDir(p.cfg.Paths.ArchiveDir); err != nil {
		return err
	}
	name := textutil.SanitizeFileName(folderName)
	if name == "" {
		name = "unnamed"
	}
	archivePath := filepath.Join(p.cfg.Paths.ArchiveDir, name+"_Final_video.mp4")
	if err := fileutil.CopyFile(outputPath, archivePath); err != nil {
		return fmt.Errorf("copy to archive: %w", err)
	}
	return nil
}

func (p *Processor) record(ctx context.Context, logger *slog.Logger, folderID, folderName string, outcome journal.Outcome, detail string) {
	if err := p.journal.Record(ctx, folderID, folderName, outcome, detail); err != nil {
		logger.Warn("journal write failed", logging.Error(err))
	}
}

// localVideoName derives a safe workspace filename for the downloaded video,
// preserving its extension so the render target never shares its path unless
// the source is itself named like the marker.
func localVideoName(remoteName string) string {
	name := textutil.SanitizeFileName(remoteName)
	if name == "" {
		return "video.mp4"
	}
	return name
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
