// Package deps reports the availability of the external tools and files the
// pipeline shells out to or reads at render time.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"stamper/internal/config"
)

// Requirement defines an external dependency stamper relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the external binaries the configured pipeline needs.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Overlay.FFmpegBinary,
			Description: "Renders the text overlay",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Overlay.FFprobeBinary,
			Description: "Probes video frame dimensions",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckFont reports whether the configured overlay font file exists.
func CheckFont(fontPath string) Status {
	status := Status{
		Name:        "Overlay font",
		Command:     fontPath,
		Description: "TrueType font burned into the video",
	}
	trimmed := strings.TrimSpace(fontPath)
	if trimmed == "" {
		status.Detail = "font path not configured"
		return status
	}
	info, err := os.Stat(trimmed)
	if err != nil {
		status.Detail = fmt.Sprintf("font file %q not found", trimmed)
		return status
	}
	if info.IsDir() {
		status.Detail = fmt.Sprintf("%q is a directory", trimmed)
		return status
	}
	status.Available = true
	return status
}
