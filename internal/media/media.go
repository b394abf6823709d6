// Package media renders the burned-in text overlay by driving ffmpeg and
// ffprobe as external processes. The rendering itself is a black box; this
// package only constructs its inputs and interprets success or failure.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"stamper/internal/fileutil"
)

// Fallback frame size used when probing fails; matches a common 720p upload.
const (
	fallbackWidth  = 1280
	fallbackHeight = 720
)

// OverlayRequest describes one render.
type OverlayRequest struct {
	InputPath  string
	OutputPath string
	// NameLine and PromptLine are the two stacked overlay lines.
	NameLine   string
	PromptLine string
}

// Renderer is the transform surface the processor consumes.
type Renderer interface {
	Render(ctx context.Context, req OverlayRequest) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (string, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg/ffprobe invocations.
type Client struct {
	ffmpeg        string
	ffprobe       string
	fontPath      string
	fontSizeRatio float64
	windowSeconds int
	exec          Executor
}

// New constructs a media client. The font file must exist: rendering without
// it would silently produce unreadable output.
func New(ffmpegBinary, ffprobeBinary, fontPath string, fontSizeRatio float64, windowSeconds int, opts ...Option) (*Client, error) {
	if strings.TrimSpace(ffmpegBinary) == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		return nil, errors.New("ffprobe binary required")
	}
	if strings.TrimSpace(fontPath) == "" {
		return nil, errors.New("font path required")
	}
	if fontSizeRatio <= 0 || fontSizeRatio >= 1 {
		return nil, fmt.Errorf("font size ratio %v out of range", fontSizeRatio)
	}
	if windowSeconds <= 0 {
		return nil, errors.New("overlay window must be positive")
	}
	client := &Client{
		ffmpeg:        ffmpegBinary,
		ffprobe:       ffprobeBinary,
		fontPath:      fontPath,
		fontSizeRatio: fontSizeRatio,
		windowSeconds: windowSeconds,
		exec:          commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Probe returns the width and height of the first video stream. A failed
// probe falls back to 1280x720 rather than aborting the render.
func (c *Client) Probe(ctx context.Context, path string) (int, int) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0",
		path,
	}
	out, err := c.exec.Run(ctx, c.ffprobe, args)
	if err != nil {
		return fallbackWidth, fallbackHeight
	}
	width, height, err := parseDimensions(out)
	if err != nil {
		return fallbackWidth, fallbackHeight
	}
	return width, height
}

// Render burns the two overlay lines into the video. When input and output
// resolve to the same path the render goes to a temporary file that replaces
// the original afterward, so the input is never written while open for read.
func (c *Client) Render(ctx context.Context, req OverlayRequest) error {
	if req.InputPath == "" || req.OutputPath == "" {
		return errors.New("render requires input and output paths")
	}
	if _, err := os.Stat(c.fontPath); err != nil {
		return fmt.Errorf("overlay font: %w", err)
	}

	input, err := filepath.Abs(req.InputPath)
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	output, err := filepath.Abs(req.OutputPath)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	renderTarget := output
	collision := input == output
	if collision {
		renderTarget = output + ".tmp.mp4"
	}

	_, height := c.Probe(ctx, input)
	args := c.renderArgs(input, renderTarget, height, req.NameLine, req.PromptLine)
	if _, err := c.exec.Run(ctx, c.ffmpeg, args); err != nil {
		_ = os.Remove(renderTarget)
		return fmt.Errorf("render overlay: %w", err)
	}

	if collision {
		return fileutil.ReplaceFile(renderTarget, output)
	}
	return nil
}

func (c *Client) renderArgs(input, output string, height int, nameLine, promptLine string) []string {
	fontSize := int(float64(height) * c.fontSizeRatio)
	yPrompt := height - fontSize - 40
	yName := yPrompt - fontSize - 15

	filter := strings.Join([]string{
		c.drawtext(nameLine, fontSize, yName),
		c.drawtext(promptLine, fontSize, yPrompt),
	}, ",")

	return []string{
		"-y",
		"-i", input,
		"-vf", filter,
		output,
	}
}

func (c *Client) drawtext(text string, fontSize, y int) string {
	parts := []string{
		"text='" + escapeDrawtext(text) + "'",
		"fontfile=" + c.fontPath,
		"fontsize=" + strconv.Itoa(fontSize),
		"fontcolor=black",
		"x=(w-text_w)/2",
		"y=" + strconv.Itoa(y),
		"box=1",
		"boxcolor=white@0.8",
		"boxborderw=10",
		fmt.Sprintf("enable='between(t,0,%d)'", c.windowSeconds),
	}
	return "drawtext=" + strings.Join(parts, ":")
}

// escapeDrawtext escapes the characters the drawtext filter treats specially
// inside a quoted text value.
var drawtextEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`:`, `\:`,
	`%`, `\%`,
)

func escapeDrawtext(text string) string {
	return drawtextEscaper.Replace(text)
}

func parseDimensions(out string) (int, int, error) {
	fields := strings.Split(strings.TrimSpace(out), ",")
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("unexpected ffprobe output %q", out)
	}
	width, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("parse width: %w", err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("parse height: %w", err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("non-positive dimensions %dx%d", width, height)
	}
	return width, height, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return stdout.String(), fmt.Errorf("%s: %w: %s", binary, err, detail)
		}
		return stdout.String(), fmt.Errorf("%s: %w", binary, err)
	}
	return stdout.String(), nil
}
