// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"stamper/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = filepath.Join(base, "workspace")
	cfg.Paths.ArchiveDir = filepath.Join(base, "final")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Drive.RootFolderID = "root"
	cfg.Journal.Path = filepath.Join(base, "journal.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WriteFont drops a placeholder font file and returns its path.
func WriteFont(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "font.ttf")
	if err := os.WriteFile(path, []byte("fake font"), 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	return path
}
