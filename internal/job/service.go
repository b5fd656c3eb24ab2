package job

import (
	"context"
	"fmt"
	"log/slog"

	"mathmotion.app/studio/common/logger"
	"mathmotion.app/studio/internal/pipeline"
)

// Notifier delivers terminal-state notifications. Implementations are
// best-effort; delivery failure never fails the job.
type Notifier interface {
	JobCompleted(ctx context.Context, email, question, resultURL string)
	JobFailed(ctx context.Context, email, question, errMsg string)
}

// Service bridges the workflow engine to the job registry: it owns the
// status lifecycle, turns engine progress into job logs, and converts the
// terminal state into a completed or failed record.
type Service struct {
	registry *Registry
	engine   *pipeline.Engine
	notifier Notifier
}

func NewService(registry *Registry, engine *pipeline.Engine, notifier Notifier) *Service {
	return &Service{
		registry: registry,
		engine:   engine,
		notifier: notifier,
	}
}

// Registry exposes the underlying store for the HTTP layer.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Run executes the full workflow for one job. Blocking; callers schedule it
// on a worker goroutine. The email address is optional.
func (s *Service) Run(ctx context.Context, jobID, question, email string) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		JobID:     logger.Ptr(jobID),
		Component: "studio.job.service",
	})

	if err := s.registry.SetStatus(jobID, StatusProcessing); err != nil {
		slog.ErrorContext(ctx, "cannot start job", "error", err)
		return
	}
	_ = s.registry.AppendLog(jobID, "Processing started")

	final, err := s.engine.Run(ctx, pipeline.NewState(question), func(st pipeline.State) {
		s.observe(jobID, st)
	})
	if err != nil {
		// Engine-level fault (cancellation, routing bug), not a
		// pipeline failure.
		slog.ErrorContext(ctx, "workflow aborted", "error", err)
		_ = s.registry.SetFailed(jobID, fmt.Sprintf("Workflow aborted: %v", err))
		s.notifyFailed(ctx, email, question, err.Error())
		return
	}

	if final.Failed() {
		slog.WarnContext(ctx, "job failed",
			"error", logger.Truncate(final.Err, 200),
			"attempts", final.CorrectionAttempts)
		_ = s.registry.SetFailed(jobID, final.Err)
		s.notifyFailed(ctx, email, question, final.Err)
		return
	}

	resultURL := ""
	if final.ExecutionResult != nil {
		resultURL = final.ExecutionResult.VideoFile
		if resultURL == "" {
			resultURL = final.ExecutionResult.SceneFile
		}
	}

	slog.InfoContext(ctx, "job completed",
		"result", resultURL,
		"attempts", final.CorrectionAttempts)
	_ = s.registry.SetCompleted(jobID, resultURL)
	_ = s.registry.AppendLog(jobID, "Completed: "+resultURL)

	if s.notifier != nil && email != "" {
		s.notifier.JobCompleted(ctx, email, question, resultURL)
	}
}

// observe turns each stage result into a job log line and stage update.
func (s *Service) observe(jobID string, st pipeline.State) {
	_ = s.registry.SetStage(jobID, string(st.Stage))

	entry := fmt.Sprintf("Stage %s", st.Stage)
	if st.Stage == pipeline.StageCorrect {
		entry = fmt.Sprintf("Stage %s (attempt %d)", st.Stage, st.CorrectionAttempts)
	}
	if st.Failed() {
		entry += ": " + logger.Truncate(st.Err, 500)
	} else {
		entry += ": ok"
	}
	_ = s.registry.AppendLog(jobID, entry)
}

func (s *Service) notifyFailed(ctx context.Context, email, question, errMsg string) {
	if s.notifier != nil && email != "" {
		s.notifier.JobFailed(ctx, email, question, errMsg)
	}
}
