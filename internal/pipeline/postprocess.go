package pipeline

import (
	"regexp"
	"sort"
	"strings"
)

var (
	// .set_color(RED) -> .set_color("red"), for any bare uppercase identifier
	setColorUpperRE = regexp.MustCompile(`\.set_color\(([A-Z]+)\)`)

	// def name(self...): lacking a return annotation
	defLineRE = regexp.MustCompile(`^(\s*def\s+(\w+)\(self[^)]*\))\s*:\s*$`)

	// bare uppercase allow-list color tokens, longest first so BLUE_A wins over BLUE
	upperColorTokenRE = func() *regexp.Regexp {
		tokens := make([]string, len(ValidColors))
		for i, c := range ValidColors {
			tokens[i] = strings.ToUpper(c)
		}
		sort.Slice(tokens, func(i, j int) bool { return len(tokens[i]) > len(tokens[j]) })
		return regexp.MustCompile(`\b(` + strings.Join(tokens, "|") + `)\b`)
	}()
)

// CleanGeneratedCode applies the deterministic text-transformation passes to
// raw LLM output before validation:
//   - drop directive-escape lines (leading '!') and markdown code fences
//   - quote bare uppercase color identifiers as lowercase string literals
//   - append "-> None" to method definitions lacking a return annotation
//   - normalize tabs to four spaces
//
// These are literal text passes, not parse-based rewrites; validation re-checks
// the result.
func CleanGeneratedCode(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "!") || strings.HasPrefix(trimmed, "```") {
			continue
		}
		kept = append(kept, line)
	}

	code := strings.Join(kept, "\n")

	code = setColorUpperRE.ReplaceAllStringFunc(code, func(m string) string {
		name := setColorUpperRE.FindStringSubmatch(m)[1]
		return `.set_color("` + strings.ToLower(name) + `")`
	})

	code = upperColorTokenRE.ReplaceAllStringFunc(code, func(m string) string {
		return `"` + strings.ToLower(m) + `"`
	})

	code = addReturnAnnotations(code)

	return strings.ReplaceAll(code, "\t", "    ")
}

// addReturnAnnotations appends "-> None" to def lines that take self and have
// no annotation. __init__ and construct are left alone, as are color helper
// signatures whose annotation is rewritten elsewhere.
func addReturnAnnotations(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		m := defLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[2]
		if name == "__init__" || name == "construct" {
			continue
		}
		if strings.Contains(m[1], "(self, color: str)") {
			continue
		}
		lines[i] = m[1] + " -> None:"
	}
	return strings.Join(lines, "\n")
}
