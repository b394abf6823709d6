package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stamper/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	loaded, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load with missing file failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config file")
	}
	if loaded.Drive.MarkerName != "final_video.mp4" {
		t.Fatalf("unexpected marker name: %q", loaded.Drive.MarkerName)
	}
	if loaded.Retry.MaxAttempts != 5 {
		t.Fatalf("unexpected retry attempts: %d", loaded.Retry.MaxAttempts)
	}
}

func TestLoadParsesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
workspace_dir = "` + filepath.Join(dir, "work") + `"
archive_dir = "` + filepath.Join(dir, "final") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[drive]
root_folder_id = "root-123"
marker_name = "done.mp4"

[workflow]
pass_interval_seconds = 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: exists=%v path=%q", exists, resolved)
	}
	if cfg.Drive.RootFolderID != "root-123" {
		t.Fatalf("unexpected root folder: %q", cfg.Drive.RootFolderID)
	}
	if cfg.Drive.MarkerName != "done.mp4" {
		t.Fatalf("unexpected marker: %q", cfg.Drive.MarkerName)
	}
	if cfg.Workflow.PassIntervalSeconds != 5 {
		t.Fatalf("unexpected pass interval: %d", cfg.Workflow.PassIntervalSeconds)
	}
	if !filepath.IsAbs(cfg.Paths.WorkspaceDir) {
		t.Fatalf("workspace dir not absolute: %q", cfg.Paths.WorkspaceDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = "/tmp/work"
	cfg.Paths.ArchiveDir = "/tmp/final"
	cfg.Overlay.FontSizeRatio = 1.5
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "font_size_ratio") {
		t.Fatalf("expected font ratio error, got %v", err)
	}

	cfg = config.Default()
	cfg.Paths.WorkspaceDir = "/tmp/work"
	cfg.Paths.ArchiveDir = "/tmp/final"
	cfg.Retry.MaxAttempts = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "max_attempts") {
		t.Fatalf("expected retry error, got %v", err)
	}
}

func TestValidateRemote(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateRemote(); err == nil {
		t.Fatal("expected error without root folder id")
	}

	creds := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(creds, []byte("{}"), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	cfg.Drive.RootFolderID = "root"
	cfg.Drive.CredentialsFile = creds
	if err := cfg.ValidateRemote(); err != nil {
		t.Fatalf("ValidateRemote failed: %v", err)
	}
}

func TestJournalPathDefaultsToLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = "/var/log/stamper"
	cfg.Journal.Path = ""
	if got := cfg.JournalPath(); got != filepath.Join("/var/log/stamper", "journal.db") {
		t.Fatalf("unexpected journal path: %q", got)
	}
	cfg.Journal.Path = "/data/journal.db"
	if got := cfg.JournalPath(); got != "/data/journal.db" {
		t.Fatalf("unexpected journal path override: %q", got)
	}
}
