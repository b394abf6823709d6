package config

const (
	defaultWorkspaceDir       = "~/.local/share/stamper/workspace"
	defaultArchiveDir         = "~/.local/share/stamper/final"
	defaultLogDir             = "~/.local/share/stamper/logs"
	defaultMarkerName         = "final_video.mp4"
	defaultPageSize           = 100
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultFontSizeRatio      = 0.035
	defaultOverlayWindow      = 20
	defaultRetryMaxAttempts   = 5
	defaultRetryBaseDelay     = 1
	defaultRetryMaxDelay      = 30
	defaultPassInterval       = 30
	defaultErrorRetryInterval = 10
	defaultNtfyTimeout        = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			ArchiveDir:   defaultArchiveDir,
			LogDir:       defaultLogDir,
		},
		Drive: Drive{
			MarkerName: defaultMarkerName,
			PageSize:   defaultPageSize,
		},
		Overlay: Overlay{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			FontSizeRatio: defaultFontSizeRatio,
			WindowSeconds: defaultOverlayWindow,
		},
		Retry: Retry{
			MaxAttempts:      defaultRetryMaxAttempts,
			BaseDelaySeconds: defaultRetryBaseDelay,
			MaxDelaySeconds:  defaultRetryMaxDelay,
		},
		Workflow: Workflow{
			PassIntervalSeconds:       defaultPassInterval,
			ErrorRetryIntervalSeconds: defaultErrorRetryInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Processed:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Journal: Journal{
			Enabled: true,
		},
	}
}
