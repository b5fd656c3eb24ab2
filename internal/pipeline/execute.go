package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"mathmotion.app/studio/common"
	"mathmotion.app/studio/internal/renderer"
)

// Minute granularity: two jobs for the same question in the same minute
// collide on purpose and get a numeric suffix instead.
const sceneTimestampLayout = "20060102_1504"

const outputTailBytes = 2000

// tracebackLineRE pulls 'File "...", line N' entries out of renderer stderr
// to report the failure position nearest the generated code.
var tracebackLineRE = regexp.MustCompile(`File "([^"]+)", line (\d+)`)

// execute writes the validated code to a uniquely named scene file and runs
// the renderer over it. The written file is never cleaned up, success or
// failure; partial artifacts stay on disk for postmortem.
func (p *Pipeline) execute(ctx context.Context, state State) State {
	state.Stage = StageExecute

	sceneFile, err := p.sceneFilePath(state.UserInput)
	if err != nil {
		state.Err = fmt.Sprintf("Execution failed: %v", err)
		return state
	}

	if err := os.MkdirAll(filepath.Dir(sceneFile), 0o755); err != nil {
		state.Err = fmt.Sprintf("Execution failed: creating output dir: %v", err)
		return state
	}
	if err := os.WriteFile(sceneFile, []byte(state.GeneratedCode), 0o644); err != nil {
		state.Err = fmt.Sprintf("Execution failed: writing scene file: %v", err)
		return state
	}

	slog.InfoContext(ctx, "rendering scene", "scene_file", sceneFile)

	result, err := p.renderer.Render(ctx, sceneFile)
	if err != nil {
		if errors.Is(err, renderer.ErrTimeout) {
			state.Err = fmt.Sprintf("Renderer timed out: %v", err)
		} else {
			state.Err = fmt.Sprintf("Execution failed: %v", err)
		}
		return state
	}

	if result.ExitCode != 0 {
		msg := fmt.Sprintf("Manim execution failed:\nSTDOUT: %s\nSTDERR: %s",
			tail(result.Stdout, outputTailBytes), tail(result.Stderr, outputTailBytes))
		if line, ok := nearestGeneratedLine(result.Stderr, sceneFile); ok {
			msg += fmt.Sprintf("\nNear generated code line: %d", line)
		}
		state.Err = msg
		return state
	}

	state.ExecutionResult = &ExecutionResult{
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		ReturnCode: result.ExitCode,
		SceneFile:  sceneFile,
		VideoFile:  result.VideoFile,
	}
	state.Err = ""
	slog.InfoContext(ctx, "render succeeded",
		"scene_file", sceneFile,
		"video_file", result.VideoFile)
	return state
}

// sceneFilePath derives the target filename from a slug of the question plus
// a minute-granularity timestamp, resolving collisions with a numeric suffix.
// An existing file is never overwritten.
func (p *Pipeline) sceneFilePath(question string) (string, error) {
	slug, err := common.Slugify(question, "scene")
	if err != nil {
		return "", fmt.Errorf("deriving scene filename: %w", err)
	}

	base := filepath.Join(p.generatedDir, slug+"_"+time.Now().Format(sceneTimestampLayout))
	path := base + ".py"
	for counter := 1; fileExists(path); counter++ {
		path = base + "_" + strconv.Itoa(counter) + ".py"
	}
	return path, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// nearestGeneratedLine scans traceback frames in stderr for the deepest one
// pointing into the generated scene file.
func nearestGeneratedLine(stderr, sceneFile string) (int, bool) {
	var line int
	var found bool
	for _, m := range tracebackLineRE.FindAllStringSubmatch(stderr, -1) {
		if filepath.Base(m[1]) != filepath.Base(sceneFile) {
			continue
		}
		if n, err := strconv.Atoi(m[2]); err == nil {
			line = n
			found = true
		}
	}
	return line, found
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
