package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"mathmotion.app/studio/common/logger"
)

// node is the engine's routing position. Distinct from State.Stage: the
// stage records what ran last for display, the node decides what runs next.
type node int

const (
	nodePlan node = iota
	nodeGenerate
	nodeValidate
	nodeExecute
	nodeCorrect
	nodeEnd
)

func (n node) String() string {
	switch n {
	case nodePlan:
		return "plan_scenes"
	case nodeGenerate:
		return "generate_code"
	case nodeValidate:
		return "validate_code"
	case nodeExecute:
		return "execute_code"
	case nodeCorrect:
		return "correct_code"
	default:
		return "end"
	}
}

// Observer receives the state after every stage execution. Used to bridge
// engine progress into job logs. May be nil.
type Observer func(st State)

// Engine drives the stage functions to a terminal state. Stages run strictly
// sequentially within one run; concurrency across jobs comes from running
// multiple engines, each on its own goroutine, over value-typed states that
// are never shared.
type Engine struct {
	p *Pipeline
}

func NewEngine(p *Pipeline) *Engine {
	return &Engine{p: p}
}

// Run executes the workflow for the given initial state and returns the
// terminal state. A returned error means the engine itself could not
// proceed (context cancelled, internal routing fault); pipeline failures are
// reported through the terminal state's Err field, never as an error.
//
// Routing:
//
//	plan      -> generate when the plan succeeded, else end (no recovery path)
//	generate  -> validate, unconditionally
//	validate  -> execute on success, correct on failure
//	execute   -> end on success; correct on failure with budget remaining, else end
//	correct   -> validate while budget remains, else end
//
// Termination is guaranteed: CorrectionAttempts increases on every pass
// through correct and correct turns terminal once it reaches the budget.
func (e *Engine) Run(ctx context.Context, state State, observe Observer) (State, error) {
	// Generous bound; unreachable given the budget invariant. Guards
	// against a routing bug turning into a spin.
	maxSteps := 4*e.p.maxAttempts + 8

	cur := nodePlan
	for steps := 0; cur != nodeEnd; steps++ {
		if steps >= maxSteps {
			return state, fmt.Errorf("workflow exceeded %d transitions at %s", maxSteps, cur)
		}
		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf("workflow interrupted at %s: %w", cur, err)
		}

		stageCtx := logger.WithLogFields(ctx, logger.LogFields{
			Stage:   logger.Ptr(cur.String()),
			Attempt: logger.Ptr(state.CorrectionAttempts),
		})

		var next node
		switch cur {
		case nodePlan:
			state = e.p.plan(stageCtx, state)
			if state.Failed() {
				next = nodeEnd
			} else {
				next = nodeGenerate
			}

		case nodeGenerate:
			// Generation failures still flow into validation, which
			// fails structurally and routes to correction.
			state = e.p.generateCode(stageCtx, state)
			next = nodeValidate

		case nodeValidate:
			state = e.p.validate(stageCtx, state)
			if state.Failed() {
				next = nodeCorrect
			} else {
				next = nodeExecute
			}

		case nodeExecute:
			state = e.p.execute(stageCtx, state)
			if state.Failed() && state.CorrectionAttempts < e.p.maxAttempts {
				next = nodeCorrect
			} else {
				next = nodeEnd
			}

		case nodeCorrect:
			// Routed on the attempt count, not on error presence: a
			// transient corrector failure with budget remaining goes
			// back through validate, which re-checks the unchanged
			// code and triggers the next correction pass.
			state = e.p.correct(stageCtx, state)
			if state.CorrectionAttempts < e.p.maxAttempts {
				next = nodeValidate
			} else {
				next = nodeEnd
			}
		}

		slog.DebugContext(stageCtx, "stage transition",
			"from", cur.String(),
			"to", next.String(),
			"failed", state.Failed(),
			"attempts", state.CorrectionAttempts)

		if observe != nil {
			observe(state)
		}
		cur = next
	}

	return state, nil
}
