package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const validationFailurePrefix = "validation failures:"

var validBases = map[string]bool{
	"VoiceoverScene":     true,
	"ManimVoiceoverBase": true,
}

// Cleanup idioms: the FadeOut-all-except-background comprehension (both
// spacings the exemplar and generations produce) or a plain clear call.
var cleanupPatterns = []string{
	"*[FadeOut(mob)for mob in self.mobjects if mob != self.background]",
	"*[FadeOut(mob) for mob in self.mobjects if mob != self.background]",
	"*[FadeOut(m) for m in self.mobjects if m != self.background]",
	"self.clear()",
}

// isValidationError reports whether an error message came from the validate
// stage, used to pick the correction prompt flavor.
func isValidationError(errMsg string) bool {
	return strings.Contains(errMsg, validationFailurePrefix)
}

// validate performs the structural and lint checks on the generated code.
// Pure and local: no LLM, no subprocess. Every failure found is collected and
// reported together in one multi-line error, so a correction pass sees the
// whole picture at once. Running validate twice on the same code yields the
// same result.
func (p *Pipeline) validate(ctx context.Context, state State) State {
	state.Stage = StageValidate

	if state.GeneratedCode == "" {
		state.Err = "No code to validate"
		return state
	}

	src := []byte(state.GeneratedCode)
	tree, err := parsePython(ctx, src)
	if err != nil {
		state.Err = fmt.Sprintf("Syntax check failed: %v", err)
		return state
	}
	root := tree.RootNode()

	if hasSyntaxError(root) {
		msg := "Syntax error in generated code"
		if row, col, ok := firstSyntaxError(root); ok {
			msg = fmt.Sprintf("Syntax error in generated code at line %d, column %d", row+1, col+1)
		}
		state.Err = msg
		return state
	}

	var failures []string

	class := findClass(root)
	if class == nil {
		failures = append(failures, "No scene class found")
	} else if !hasValidBase(classBases(class, src)) {
		failures = append(failures, "Scene must inherit from VoiceoverScene or ManimVoiceoverBase")
	}

	if !hasCleanup(state.GeneratedCode) {
		failures = append(failures, "Scene must include proper cleanup (FadeOut all mobjects except background, or self.clear())")
	}

	if failure, ok := checkVoiceover(state.GeneratedCode); !ok {
		failures = append(failures, failure)
	}

	if invalid := InvalidColors(state.GeneratedCode); len(invalid) > 0 {
		failures = append(failures, fmt.Sprintf("Invalid color(s) used: %s", strings.Join(invalid, ", ")))
	}

	if len(failures) > 0 {
		state.Err = validationFailurePrefix + "\n- " + strings.Join(failures, "\n- ")
		slog.DebugContext(ctx, "validation failed", "failure_count", len(failures))
		return state
	}

	state.Err = ""
	slog.DebugContext(ctx, "validation passed",
		"scene_class", className(class, src),
		"code_bytes", len(state.GeneratedCode))
	return state
}

func hasValidBase(bases []string) bool {
	for _, base := range bases {
		if validBases[base] {
			return true
		}
	}
	return false
}

func hasCleanup(code string) bool {
	for _, pattern := range cleanupPatterns {
		if strings.Contains(code, pattern) {
			return true
		}
	}
	return false
}

// checkVoiceover requires the block form "with self.voiceover(...)". A bare
// self.voiceover(...) call records nothing against the animation timeline, so
// it fails even though voiceover is technically present.
func checkVoiceover(code string) (string, bool) {
	if !strings.Contains(code, "self.voiceover(") {
		return "Missing voiceover narration (use 'with self.voiceover(text=...) as tracker:')", false
	}
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		idx := strings.Index(trimmed, "self.voiceover(")
		if idx < 0 {
			continue
		}
		if !strings.HasPrefix(trimmed, "with ") {
			return "Voiceover must use the block form 'with self.voiceover(...) as tracker:', not a bare call", false
		}
	}
	return "", true
}
