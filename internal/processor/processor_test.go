package processor_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	"stamper/internal/drive"
	"stamper/internal/logging"
	"stamper/internal/media"
	"stamper/internal/processor"
	"stamper/internal/retry"
	"stamper/internal/testsupport"
)

type fakeStore struct {
	children map[string][]drive.Entry

	listCalls     int
	downloadCalls int
	exportCalls   int
	uploadCalls   int

	listErrs    []error // consumed per call before succeeding
	uploadErrs  []error
	downloadErr error

	uploadedTo   []string
	uploadedFrom []string
}

func (f *fakeStore) ListChildren(_ context.Context, folderID string) ([]drive.Entry, error) {
	f.listCalls++
	if len(f.listErrs) > 0 {
		err := f.listErrs[0]
		f.listErrs = f.listErrs[1:]
		return nil, err
	}
	return f.children[folderID], nil
}

func (f *fakeStore) ListFolders(context.Context, string) ([]drive.Entry, error) {
	return nil, nil
}

func (f *fakeStore) FolderName(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) HasChild(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fakeStore) Download(_ context.Context, _ string, destPath string) error {
	f.downloadCalls++
	if f.downloadErr != nil {
		return f.downloadErr
	}
	return os.WriteFile(destPath, []byte("content"), 0o644)
}

func (f *fakeStore) ExportText(_ context.Context, _ string, destPath string) error {
	f.exportCalls++
	return os.WriteFile(destPath, []byte("  exported prompt  \n"), 0o644)
}

func (f *fakeStore) Upload(_ context.Context, localPath, folderID, _ string) (string, error) {
	f.uploadCalls++
	if len(f.uploadErrs) > 0 {
		err := f.uploadErrs[0]
		f.uploadErrs = f.uploadErrs[1:]
		if err != nil {
			return "", err
		}
	}
	f.uploadedTo = append(f.uploadedTo, folderID)
	f.uploadedFrom = append(f.uploadedFrom, localPath)
	return "uploaded-1", nil
}

type fakeRenderer struct {
	calls []media.OverlayRequest
	err   error
}

func (f *fakeRenderer) Render(_ context.Context, req media.OverlayRequest) error {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(req.OutputPath, []byte("rendered"), 0o644)
}

func instantPolicy(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

func transientErr() error {
	return fmt.Errorf("remote: %w", &googleapi.Error{Code: 503, Message: "unavailable"})
}

func TestProcessHappyPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := &fakeStore{children: map[string][]drive.Entry{
		"g1": {
			{ID: "v1", Name: "a.mp4", MIMEType: "video/mp4"},
			{ID: "p1", Name: "notes.txt", MIMEType: "text/plain"},
		},
	}}
	renderer := &fakeRenderer{}
	proc := processor.New(cfg, store, renderer, logging.NewNop(),
		processor.WithPolicy(instantPolicy(3)))

	if err := proc.Process(context.Background(), "g1", "Jane Doe"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if store.uploadCalls != 1 {
		t.Fatalf("expected exactly one upload, got %d", store.uploadCalls)
	}
	if store.uploadedTo[0] != "g1" {
		t.Fatalf("uploaded to wrong folder: %q", store.uploadedTo[0])
	}
	if filepath.Base(store.uploadedFrom[0]) != "final_video.mp4" {
		t.Fatalf("upload source should carry the marker name, got %q", store.uploadedFrom[0])
	}

	if len(renderer.calls) != 1 {
		t.Fatalf("expected one render, got %d", len(renderer.calls))
	}
	req := renderer.calls[0]
	if req.NameLine != "Name: Jane Doe" {
		t.Errorf("unexpected name line %q", req.NameLine)
	}
	if req.PromptLine != "Prompt Structure: content" {
		t.Errorf("prompt not trimmed/applied: %q", req.PromptLine)
	}

	archive := filepath.Join(cfg.Paths.ArchiveDir, "Jane Doe_Final_video.mp4")
	if _, err := os.Stat(archive); err != nil {
		t.Fatalf("archive file missing: %v", err)
	}

	// Workspace must not leak across node boundaries.
	entries, err := os.ReadDir(cfg.Paths.WorkspaceDir)
	if err != nil {
		t.Fatalf("read workspace: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("workspace not cleaned up: %v", entries)
	}
}

func TestProcessGoogleDocPromptIsExported(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := &fakeStore{children: map[string][]drive.Entry{
		"g1": {
			{ID: "v1", Name: "clip.mov", MIMEType: "video/quicktime"},
			{ID: "p1", Name: "Prompt", MIMEType: drive.MIMETypeGoogleDoc},
		},
	}}
	renderer := &fakeRenderer{}
	proc := processor.New(cfg, store, renderer, logging.NewNop(),
		processor.WithPolicy(instantPolicy(3)))

	if err := proc.Process(context.Background(), "g1", "Jane"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if store.exportCalls != 1 {
		t.Fatalf("expected prompt export, got %d export calls", store.exportCalls)
	}
	if renderer.calls[0].PromptLine != "Prompt Structure: exported prompt" {
		t.Fatalf("exported prompt not trimmed: %q", renderer.calls[0].PromptLine)
	}
}

func TestProcessMissingInputHasNoSideEffects(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := &fakeStore{children: map[string][]drive.Entry{
		"h1": {{ID: "r1", Name: "readme.txt", MIMEType: "text/plain"}},
	}}
	renderer := &fakeRenderer{}
	proc := processor.New(cfg, store, renderer, logging.NewNop(),
		processor.WithPolicy(instantPolicy(3)))

	err := proc.Process(context.Background(), "h1", "H")
	if !errors.Is(err, processor.ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "no video") {
		t.Fatalf("error should name the missing role: %v", err)
	}
	if store.downloadCalls != 0 || store.exportCalls != 0 || store.uploadCalls != 0 {
		t.Fatalf("expected zero transfer calls, got %+v", store)
	}
	if len(renderer.calls) != 0 {
		t.Fatal("renderer must not run without inputs")
	}
}

func TestProcessFirstSeenPairWins(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := &fakeStore{children: map[string][]drive.Entry{
		"g1": {
			{ID: "v1", Name: "first.mp4", MIMEType: "video/mp4"},
			{ID: "p1", Name: "first.txt", MIMEType: "text/plain"},
			{ID: "v2", Name: "second.mp4", MIMEType: "video/mp4"},
			{ID: "p2", Name: "second.txt", MIMEType: "text/plain"},
		},
	}}
	renderer := &fakeRenderer{}
	proc := processor.New(cfg, store, renderer, logging.NewNop(),
		processor.WithPolicy(instantPolicy(3)))

	if err := proc.Process(context.Background(), "g1", "G"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got := filepath.Base(renderer.calls[0].InputPath); got != "first.mp4" {
		t.Fatalf("expected first-seen video, rendered %q", got)
	}
}

func TestProcessTransformFailureSkipsUpload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := &fakeStore{children: map[string][]drive.Entry{
		"g1": {
			{ID: "v1", Name: "a.mp4", MIMEType: "video/mp4"},
			{ID: "p1", Name: "notes.txt", MIMEType: "text/plain"},
		},
	}}
	renderer := &fakeRenderer{err: errors.New("filter failed")}
	proc := processor.New(cfg, store, renderer, logging.NewNop(),
		processor.WithPolicy(instantPolicy(3)))

	err := proc.Process(context.Background(), "g1", "G")
	if err == nil || !strings.Contains(err.Error(), "render overlay") {
		t.Fatalf("expected render error, got %v", err)
	}
	if store.uploadCalls != 0 {
		t.Fatalf("no upload should happen after a failed render, got %d", store.uploadCalls)
	}
}

func TestProcessRetriesTransientListing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := &fakeStore{
		children: map[string][]drive.Entry{
			"g1": {
				{ID: "v1", Name: "a.mp4", MIMEType: "video/mp4"},
				{ID: "p1", Name: "notes.txt", MIMEType: "text/plain"},
			},
		},
		listErrs: []error{transientErr(), transientErr()},
	}
	renderer := &fakeRenderer{}
	proc := processor.New(cfg, store, renderer, logging.NewNop(),
		processor.WithPolicy(instantPolicy(3)))

	if err := proc.Process(context.Background(), "g1", "G"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if store.listCalls != 3 {
		t.Fatalf("expected 3 list attempts, got %d", store.listCalls)
	}
}

func TestProcessPermanentListErrorPropagates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := &fakeStore{
		listErrs: []error{fmt.Errorf("remote: %w", &googleapi.Error{Code: 404})},
	}
	proc := processor.New(cfg, store, &fakeRenderer{}, logging.NewNop(),
		processor.WithPolicy(instantPolicy(3)))

	err := proc.Process(context.Background(), "gone", "G")
	if err == nil {
		t.Fatal("expected error")
	}
	if store.listCalls != 1 {
		t.Fatalf("permanent errors must not be retried, got %d calls", store.listCalls)
	}
}

func TestProcessRetriedUploadStillSingleArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := &fakeStore{
		children: map[string][]drive.Entry{
			"g1": {
				{ID: "v1", Name: "a.mp4", MIMEType: "video/mp4"},
				{ID: "p1", Name: "notes.txt", MIMEType: "text/plain"},
			},
		},
		uploadErrs: []error{transientErr()},
	}
	renderer := &fakeRenderer{}
	proc := processor.New(cfg, store, renderer, logging.NewNop(),
		processor.WithPolicy(instantPolicy(3)))

	if err := proc.Process(context.Background(), "g1", "G"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if store.uploadCalls != 2 {
		t.Fatalf("expected retried upload, got %d calls", store.uploadCalls)
	}
	entries, err := os.ReadDir(cfg.Paths.ArchiveDir)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one archive file, got %d", len(entries))
	}
}
