package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"mathmotion.app/studio/common/llm"
	"mathmotion.app/studio/common/logger"
	"mathmotion.app/studio/core/config"
	"mathmotion.app/studio/internal/pipeline"
	"mathmotion.app/studio/internal/renderer"
)

// One-shot pipeline run for local testing: no HTTP, no queue, no registry.
// Prints the terminal state and exits non-zero on failure.
func main() {
	question := flag.String("question", "", "question to turn into a video")
	flag.Parse()

	if *question == "" && flag.NArg() > 0 {
		q := flag.Arg(0)
		question = &q
	}
	if *question == "" {
		fmt.Fprintln(os.Stderr, "usage: render -question \"What is the GCF of 18 and 24?\"")
		os.Exit(2)
	}

	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeRender)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger.Setup(cfg)

	templates, err := pipeline.LoadTemplates(cfg.Pipeline.TemplatesDir)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load templates", "error", err)
		os.Exit(1)
	}

	planner, err := llm.NewCompleter(llmConfig(cfg.PlannerLLM))
	if err != nil {
		slog.ErrorContext(ctx, "planner client", "error", err)
		os.Exit(1)
	}
	coder, err := llm.NewCompleter(llmConfig(cfg.CoderLLM))
	if err != nil {
		slog.ErrorContext(ctx, "coder client", "error", err)
		os.Exit(1)
	}
	corrector, err := llm.NewCompleter(llmConfig(cfg.CorrectorLLM))
	if err != nil {
		slog.ErrorContext(ctx, "corrector client", "error", err)
		os.Exit(1)
	}

	manim := renderer.NewManim(cfg.Renderer.Binary, cfg.Renderer.Quality,
		cfg.Renderer.MediaDir, cfg.Renderer.Timeout)

	pipe, err := pipeline.New(pipeline.Options{
		Planner:      planner,
		Coder:        coder,
		Corrector:    corrector,
		Renderer:     manim,
		Templates:    templates,
		GeneratedDir: cfg.Pipeline.GeneratedDir,
		DebugDir:     cfg.Pipeline.DebugDir,
		MaxAttempts:  cfg.Pipeline.MaxCorrectionAttempts,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to build pipeline", "error", err)
		os.Exit(1)
	}

	engine := pipeline.NewEngine(pipe)

	final, err := engine.Run(ctx, pipeline.NewState(*question), func(st pipeline.State) {
		fmt.Printf("  [%s] failed=%v attempts=%d\n", st.Stage, st.Failed(), st.CorrectionAttempts)
	})
	if err != nil {
		slog.ErrorContext(ctx, "workflow aborted", "error", err)
		os.Exit(1)
	}

	if final.Failed() {
		fmt.Printf("\nFAILED after %d correction attempt(s):\n%s\n", final.CorrectionAttempts, final.Err)
		os.Exit(1)
	}

	fmt.Printf("\nOK (%d correction attempt(s))\n", final.CorrectionAttempts)
	if final.ExecutionResult != nil {
		fmt.Println("scene file:", final.ExecutionResult.SceneFile)
		if final.ExecutionResult.VideoFile != "" {
			fmt.Println("video file:", final.ExecutionResult.VideoFile)
		}
	}
}

func llmConfig(c config.LLMConfig) llm.Config {
	return llm.Config{
		Provider: c.Provider,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
		Model:    c.Model,
	}
}
