package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mathmotion.app/studio/common/llm"
	"mathmotion.app/studio/common/logger"
)

// ErrBudgetExhausted is the fixed terminal message for a spent correction
// budget. Callers match on this text to tell systemic failure apart from a
// single bad generation.
const ErrBudgetExhausted = "Maximum correction attempts reached"

const fixLogFile = "corrections.json"
const fixLogKeep = 100

type fixLogEntry struct {
	Timestamp string `json:"timestamp"`
	ErrorType string `json:"error_type"`
	Error     string `json:"original_error"`
	Attempt   int    `json:"correction_attempt"`
	Model     string `json:"model"`
}

// correct feeds the error and the full current code back to the LLM and
// replaces the code wholesale with the response. The attempt counter is
// bumped before anything else; once it reaches the budget the LLM is not
// called and the terminal budget error is set instead. Err is cleared
// optimistically on success: the next validate pass re-checks the result.
func (p *Pipeline) correct(ctx context.Context, state State) State {
	state.Stage = StageCorrect
	state.CorrectionAttempts++

	if state.CorrectionAttempts >= p.maxAttempts {
		state.Err = ErrBudgetExhausted
		slog.WarnContext(ctx, "correction budget exhausted",
			"attempts", state.CorrectionAttempts)
		return state
	}

	slog.InfoContext(ctx, "attempting correction",
		"attempt", state.CorrectionAttempts,
		"error", logger.Truncate(state.Err, 200))

	errMsg := state.Err
	resp, err := p.corrector.Complete(ctx, llm.Request{
		SystemPrompt: correctionSystemPrompt,
		UserPrompt:   correctionPrompt(errMsg, state.GeneratedCode, state.Plan, p.templates),
	})
	if err != nil {
		state.Err = fmt.Sprintf("Correction failed: %v", err)
		return state
	}
	if resp.Text == "" {
		state.Err = "Correction failed: empty response"
		return state
	}

	p.writeFixLog(ctx, errMsg, state.CorrectionAttempts)

	state.GeneratedCode = CleanGeneratedCode(resp.Text)
	state.Err = ""
	return state
}

// writeFixLog appends a correction record to the debug history, keeping the
// most recent entries. Best effort; a debug log failure never fails the job.
func (p *Pipeline) writeFixLog(ctx context.Context, errMsg string, attempt int) {
	if p.debugDir == "" {
		return
	}

	errType := "execution"
	if isValidationError(errMsg) {
		errType = "validation"
	}

	path := filepath.Join(p.debugDir, fixLogFile)

	var history []fixLogEntry
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &history)
	}

	history = append(history, fixLogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		ErrorType: errType,
		Error:     errMsg,
		Attempt:   attempt,
		Model:     p.corrector.Model(),
	})
	if len(history) > fixLogKeep {
		history = history[len(history)-fixLogKeep:]
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(p.debugDir, 0o755); err != nil {
		slog.DebugContext(ctx, "fix log dir unavailable", "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.DebugContext(ctx, "fix log write failed", "error", err)
	}
}
