package media_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stamper/internal/media"
)

type fakeExecutor struct {
	calls   [][]string
	outputs map[string]string // keyed by binary
	errs    map[string]error
	// writeOutput, when true, creates the last argument as a file so the
	// render target exists after a "successful" ffmpeg run.
	writeOutput bool
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string) (string, error) {
	f.calls = append(f.calls, append([]string{binary}, args...))
	if err := f.errs[binary]; err != nil {
		return "", err
	}
	if f.writeOutput && binary == "ffmpeg" {
		_ = os.WriteFile(args[len(args)-1], []byte("rendered"), 0o644)
	}
	return f.outputs[binary], nil
}

func newClient(t *testing.T, exec *fakeExecutor) *media.Client {
	t.Helper()
	font := filepath.Join(t.TempDir(), "font.ttf")
	if err := os.WriteFile(font, []byte("fake font"), 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	client, err := media.New("ffmpeg", "ffprobe", font, 0.035, 20, media.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client
}

func TestProbeParsesDimensions(t *testing.T) {
	exec := &fakeExecutor{outputs: map[string]string{"ffprobe": "1920,1080\n"}}
	client := newClient(t, exec)

	w, h := client.Probe(context.Background(), "in.mp4")
	if w != 1920 || h != 1080 {
		t.Fatalf("Probe = %dx%d, want 1920x1080", w, h)
	}
}

func TestProbeFallsBackOnFailure(t *testing.T) {
	exec := &fakeExecutor{errs: map[string]error{"ffprobe": errors.New("boom")}}
	client := newClient(t, exec)

	w, h := client.Probe(context.Background(), "in.mp4")
	if w != 1280 || h != 720 {
		t.Fatalf("Probe fallback = %dx%d, want 1280x720", w, h)
	}

	exec = &fakeExecutor{outputs: map[string]string{"ffprobe": "garbage"}}
	client = newClient(t, exec)
	w, h = client.Probe(context.Background(), "in.mp4")
	if w != 1280 || h != 720 {
		t.Fatalf("Probe on garbage = %dx%d, want 1280x720", w, h)
	}
}

func TestRenderBuildsDrawtextFilter(t *testing.T) {
	exec := &fakeExecutor{outputs: map[string]string{"ffprobe": "1280,720"}}
	client := newClient(t, exec)

	dir := t.TempDir()
	req := media.OverlayRequest{
		InputPath:  filepath.Join(dir, "video.mp4"),
		OutputPath: filepath.Join(dir, "final_video.mp4"),
		NameLine:   "Name: Jane",
		PromptLine: "Prompt Structure: a 100% real prompt",
	}
	if err := client.Render(context.Background(), req); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if len(exec.calls) != 2 {
		t.Fatalf("expected probe + render calls, got %d", len(exec.calls))
	}
	render := exec.calls[1]
	if render[0] != "ffmpeg" {
		t.Fatalf("expected ffmpeg call, got %v", render)
	}
	joined := strings.Join(render, " ")
	// fontsize = 720 * 0.035 = 25; prompt at 720-25-40, name 25+15 above it.
	if !strings.Contains(joined, "fontsize=25") {
		t.Errorf("font size not derived from frame height: %s", joined)
	}
	if !strings.Contains(joined, "y=655") || !strings.Contains(joined, "y=615") {
		t.Errorf("line positions wrong: %s", joined)
	}
	if !strings.Contains(joined, "enable='between(t,0,20)'") {
		t.Errorf("overlay window missing: %s", joined)
	}
	if !strings.Contains(joined, `a 100\% real prompt`) {
		t.Errorf("percent not escaped for drawtext: %s", joined)
	}
	if render[len(render)-1] != req.OutputPath {
		t.Errorf("output path %q not last argument", req.OutputPath)
	}
}

func TestRenderSamePathUsesTemporaryFile(t *testing.T) {
	exec := &fakeExecutor{outputs: map[string]string{"ffprobe": "1280,720"}, writeOutput: true}
	client := newClient(t, exec)

	dir := t.TempDir()
	path := filepath.Join(dir, "video.mp4")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	req := media.OverlayRequest{InputPath: path, OutputPath: path, NameLine: "n", PromptLine: "p"}
	if err := client.Render(context.Background(), req); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	render := exec.calls[1]
	target := render[len(render)-1]
	if target == path {
		t.Fatal("render target must differ from input on collision")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "rendered" {
		t.Fatalf("output not replaced atomically: %q", data)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("temporary render file left behind: %v", err)
	}
}

func TestRenderFailurePropagates(t *testing.T) {
	exec := &fakeExecutor{
		outputs: map[string]string{"ffprobe": "1280,720"},
		errs:    map[string]error{"ffmpeg": errors.New("filter error")},
	}
	client := newClient(t, exec)

	dir := t.TempDir()
	req := media.OverlayRequest{
		InputPath:  filepath.Join(dir, "in.mp4"),
		OutputPath: filepath.Join(dir, "out.mp4"),
	}
	if err := client.Render(context.Background(), req); err == nil {
		t.Fatal("expected render error")
	}
}

func TestRenderRequiresFont(t *testing.T) {
	exec := &fakeExecutor{outputs: map[string]string{"ffprobe": "1280,720"}}
	client, err := media.New("ffmpeg", "ffprobe", filepath.Join(t.TempDir(), "missing.ttf"), 0.035, 20, media.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	req := media.OverlayRequest{InputPath: "a.mp4", OutputPath: "b.mp4"}
	if err := client.Render(context.Background(), req); err == nil {
		t.Fatal("expected error for missing font")
	}
	if len(exec.calls) != 0 {
		t.Fatalf("no commands should run without a font, got %v", exec.calls)
	}
}
