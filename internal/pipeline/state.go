package pipeline

// Stage identifies the last stage attempted. It drives display and logging,
// not branching; the engine routes on error presence and attempt count.
type Stage string

const (
	StagePlan     Stage = "plan"
	StageCode     Stage = "code"
	StageValidate Stage = "validate"
	StageExecute  Stage = "execute"
	StageCorrect  Stage = "correct"
)

// ExecutionResult holds the outcome of a successful Execute stage.
type ExecutionResult struct {
	Stdout     string
	Stderr     string
	ReturnCode int
	SceneFile  string
	VideoFile  string
}

// State is the record threaded through every stage. Stages take a State by
// value and return a complete replacement; nothing is mutated in place, so
// before/after snapshots are always safe to log. Empty string means absent.
type State struct {
	UserInput          string
	Plan               string
	GeneratedCode      string
	ExecutionResult    *ExecutionResult
	Err                string
	Stage              Stage
	CorrectionAttempts int
}

// NewState returns the initial state for a question.
func NewState(userInput string) State {
	return State{UserInput: userInput}
}

// Failed reports whether the most recent stage set an error.
func (s State) Failed() bool {
	return s.Err != ""
}
