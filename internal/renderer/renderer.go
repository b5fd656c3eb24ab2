package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"
)

// ErrTimeout is returned when the render subprocess exceeds the configured
// wall-clock timeout. The process is killed before this error is returned.
var ErrTimeout = errors.New("renderer timed out")

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".webm": true,
	".mkv":  true,
}

// Result captures the output of one render invocation.
type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	VideoFile string // first video artifact found under the media tree, empty on failure
}

// Renderer turns a scene source file into a video artifact.
type Renderer interface {
	Render(ctx context.Context, sceneFile string) (*Result, error)
}

// Manim invokes the manim CLI as a subprocess.
type Manim struct {
	Binary   string // e.g. "manim"
	Quality  string // e.g. "-ql"
	MediaDir string // passed as --media_dir, also scanned for the artifact
	Timeout  time.Duration
}

func NewManim(binary, quality, mediaDir string, timeout time.Duration) *Manim {
	return &Manim{
		Binary:   binary,
		Quality:  quality,
		MediaDir: mediaDir,
		Timeout:  timeout,
	}
}

// Render runs the manim subprocess with a hard timeout. A non-zero exit code
// is not an error at this level; callers inspect Result.ExitCode. An error is
// returned only for timeout or failure to start the process.
func (m *Manim) Render(ctx context.Context, sceneFile string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	args := []string{m.Quality, sceneFile}
	if m.MediaDir != "" {
		args = append(args, "--media_dir", m.MediaDir)
	}

	cmd := exec.CommandContext(ctx, m.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, m.Timeout)
	}

	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("running %s: %w", m.Binary, runErr)
		}
	}

	slog.DebugContext(ctx, "render finished",
		"scene_file", sceneFile,
		"exit_code", result.ExitCode,
		"duration_ms", time.Since(start).Milliseconds())

	if result.ExitCode == 0 {
		result.VideoFile = m.findVideo()
	}

	return result, nil
}

// findVideo returns the first video file under the media videos tree,
// or empty if none was produced.
func (m *Manim) findVideo() string {
	root := filepath.Join(m.MediaDir, "videos")
	var found string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && videoExtensions[filepath.Ext(path)] {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}
