// Package config loads and validates stamper's TOML configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkspaceDir string `toml:"workspace_dir"`
	ArchiveDir   string `toml:"archive_dir"`
	LogDir       string `toml:"log_dir"`
}

// Drive contains configuration for the remote store.
type Drive struct {
	RootFolderID    string `toml:"root_folder_id"`
	CredentialsFile string `toml:"credentials_file"`
	MarkerName      string `toml:"marker_name"`
	PageSize        int64  `toml:"page_size"`
}

// Overlay contains configuration for the text overlay render.
type Overlay struct {
	FFmpegBinary  string  `toml:"ffmpeg_binary"`
	FFprobeBinary string  `toml:"ffprobe_binary"`
	FontPath      string  `toml:"font_path"`
	FontSizeRatio float64 `toml:"font_size_ratio"`
	WindowSeconds int     `toml:"window_seconds"`
}

// Classify contains the role classifier allow-lists. Empty lists fall back to
// the built-in defaults.
type Classify struct {
	VideoExtensions  []string `toml:"video_extensions"`
	PromptExtensions []string `toml:"prompt_extensions"`
	PromptMIMETypes  []string `toml:"prompt_mime_types"`
}

// Retry contains backoff settings for remote operations.
type Retry struct {
	MaxAttempts      int `toml:"max_attempts"`
	BaseDelaySeconds int `toml:"base_delay_seconds"`
	MaxDelaySeconds  int `toml:"max_delay_seconds"`
}

// Workflow contains crawl loop timing.
type Workflow struct {
	PassIntervalSeconds       int `toml:"pass_interval_seconds"`
	ErrorRetryIntervalSeconds int `toml:"error_retry_interval_seconds"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Processed      bool   `toml:"processed"`
	Errors         bool   `toml:"errors"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Journal contains settings for the local processing journal.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Config encapsulates all configuration values for stamper.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Drive         Drive         `toml:"drive"`
	Overlay       Overlay       `toml:"overlay"`
	Classify      Classify      `toml:"classify"`
	Retry         Retry         `toml:"retry"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	Journal       Journal       `toml:"journal"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/stamper/config.toml")
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean result
// reports whether a config file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("stamper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	for _, field := range []*string{
		&c.Paths.WorkspaceDir,
		&c.Paths.ArchiveDir,
		&c.Paths.LogDir,
		&c.Drive.CredentialsFile,
		&c.Overlay.FontPath,
		&c.Journal.Path,
	} {
		if strings.TrimSpace(*field) == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	c.Drive.MarkerName = strings.TrimSpace(c.Drive.MarkerName)
	c.Drive.RootFolderID = strings.TrimSpace(c.Drive.RootFolderID)
	return nil
}

// Validate checks structural configuration invariants. Deployment-specific
// fields (root folder, credentials) are checked separately by
// ValidateRemote so read-only commands work on a fresh install.
func (c *Config) Validate() error {
	if c.Paths.WorkspaceDir == "" {
		return errors.New("paths.workspace_dir is required")
	}
	if c.Paths.ArchiveDir == "" {
		return errors.New("paths.archive_dir is required")
	}
	if c.Drive.MarkerName == "" {
		return errors.New("drive.marker_name is required")
	}
	if c.Retry.MaxAttempts <= 0 {
		return errors.New("retry.max_attempts must be positive")
	}
	if c.Retry.BaseDelaySeconds <= 0 || c.Retry.MaxDelaySeconds < c.Retry.BaseDelaySeconds {
		return errors.New("retry delays must satisfy 0 < base_delay_seconds <= max_delay_seconds")
	}
	if c.Overlay.FontSizeRatio <= 0 || c.Overlay.FontSizeRatio >= 1 {
		return errors.New("overlay.font_size_ratio must be in (0, 1)")
	}
	if c.Overlay.WindowSeconds <= 0 {
		return errors.New("overlay.window_seconds must be positive")
	}
	if c.Workflow.PassIntervalSeconds <= 0 {
		return errors.New("workflow.pass_interval_seconds must be positive")
	}
	return nil
}

// ValidateRemote checks the fields required to reach the remote store.
func (c *Config) ValidateRemote() error {
	if c.Drive.RootFolderID == "" {
		return errors.New("drive.root_folder_id is required")
	}
	if c.Drive.CredentialsFile == "" {
		return errors.New("drive.credentials_file is required")
	}
	if _, err := os.Stat(c.Drive.CredentialsFile); err != nil {
		return fmt.Errorf("drive.credentials_file: %w", err)
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkspaceDir, c.Paths.ArchiveDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JournalPath returns the journal database path, defaulting to the log dir.
func (c *Config) JournalPath() string {
	if strings.TrimSpace(c.Journal.Path) != "" {
		return c.Journal.Path
	}
	return filepath.Join(c.Paths.LogDir, "journal.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
