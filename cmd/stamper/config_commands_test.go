package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Fatalf("output should mention target path, got %q", output)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample config: %v", err)
	}
	for _, section := range []string{"[paths]", "[drive]", "[overlay]", "[retry]"} {
		if !strings.Contains(string(data), section) {
			t.Fatalf("sample config missing %s section", section)
		}
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCommand(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected overwrite refusal")
	} else if !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite failed: %v", err)
	}
}

func TestConfigValidateAcceptsSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCommand(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	output, err := runCommand(t, "config", "validate", "--config", target)
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	if !strings.Contains(output, "Structure valid") {
		t.Fatalf("expected validation success, got %q", output)
	}
	// The sample ships without a root folder, so the remote check reports it.
	if !strings.Contains(output, "root_folder_id") {
		t.Fatalf("expected remote hint in output, got %q", output)
	}
}
