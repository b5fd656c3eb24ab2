package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"mathmotion.app/studio/common/llm"
)

// generateCode turns the plan into scene code. The raw completion goes
// through the deterministic post-processing passes before it is stored.
// A fresh generation resets the correction budget; previous code is kept on
// failure so a later correction still has something to work from.
func (p *Pipeline) generateCode(ctx context.Context, state State) State {
	state.Stage = StageCode

	if state.Plan == "" {
		state.Err = "No plan available for code generation"
		return state
	}

	slog.InfoContext(ctx, "generating scene code from plan",
		"plan_bytes", len(state.Plan))

	resp, err := p.coder.Complete(ctx, llm.Request{
		UserPrompt: generatePrompt(state.Plan, p.templates),
	})
	if err != nil {
		state.Err = fmt.Sprintf("Code generation failed: %v", err)
		return state
	}
	if resp.Text == "" {
		state.Err = "Code generation failed: empty response"
		return state
	}

	state.GeneratedCode = CleanGeneratedCode(resp.Text)
	state.CorrectionAttempts = 0
	state.Err = ""
	return state
}
