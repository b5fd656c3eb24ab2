package pipeline

import (
	"fmt"

	"mathmotion.app/studio/common/llm"
	"mathmotion.app/studio/internal/renderer"
)

// DefaultMaxAttempts bounds the correction loop.
const DefaultMaxAttempts = 3

// Options carries the capabilities a Pipeline needs. Every external
// collaborator is injected; the pipeline holds no ambient globals.
type Options struct {
	Planner   llm.Completer
	Coder     llm.Completer
	Corrector llm.Completer
	Renderer  renderer.Renderer
	Templates TemplateSet

	GeneratedDir string // where scene files are written
	DebugDir     string // correction history log, disabled when empty
	MaxAttempts  int    // defaults to DefaultMaxAttempts
}

// Pipeline implements the five stage functions. Each stage takes a State by
// value, calls at most one external collaborator, and returns a complete
// replacement state with either forward progress or Err set; no stage lets an
// expected failure escape as an error value.
type Pipeline struct {
	planner   llm.Completer
	coder     llm.Completer
	corrector llm.Completer
	renderer  renderer.Renderer
	templates TemplateSet

	generatedDir string
	debugDir     string
	maxAttempts  int
}

func New(opts Options) (*Pipeline, error) {
	if opts.Planner == nil || opts.Coder == nil || opts.Corrector == nil {
		return nil, fmt.Errorf("planner, coder, and corrector completers are required")
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if opts.GeneratedDir == "" {
		return nil, fmt.Errorf("generated dir is required")
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Pipeline{
		planner:      opts.Planner,
		coder:        opts.Coder,
		corrector:    opts.Corrector,
		renderer:     opts.Renderer,
		templates:    opts.Templates,
		generatedDir: opts.GeneratedDir,
		debugDir:     opts.DebugDir,
		maxAttempts:  maxAttempts,
	}, nil
}

// MaxAttempts returns the configured correction budget.
func (p *Pipeline) MaxAttempts() int {
	return p.maxAttempts
}
