package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"mathmotion.app/studio/common/llm"
)

// plan asks the LLM for a 3-5 scene lesson plan for the question.
// There is no recovery path for a plan failure; the engine terminates the job.
func (p *Pipeline) plan(ctx context.Context, state State) State {
	state.Stage = StagePlan

	slog.InfoContext(ctx, "planning scenes", "question", state.UserInput)

	resp, err := p.planner.Complete(ctx, llm.Request{
		UserPrompt: planPrompt(state.UserInput),
	})
	if err != nil {
		state.Err = fmt.Sprintf("Failed to generate scene plan: %v", err)
		return state
	}
	if resp.Text == "" {
		state.Err = "Failed to generate scene plan: empty response"
		return state
	}

	state.Plan = resp.Text
	state.Err = ""
	return state
}
