package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	exemplarFile = "examples/gcf.py"
	apiDocFile   = "api_docs/manim_mobjects.py"

	// Used when the API doc excerpt is missing; generation still works,
	// just with a thinner reference.
	apiDocFallback = "Manim API v0.19.0 - Basic shapes and transformations"
)

// TemplateSet holds the prompt-embedded reference material: a complete
// exemplar scene and an API doc excerpt.
type TemplateSet struct {
	Exemplar string
	APIDoc   string
}

// LoadTemplates reads the template assets from dir. The exemplar is required;
// prompt quality depends on it, so its absence is a hard error. The API doc
// excerpt falls back to a one-line stub.
func LoadTemplates(dir string) (TemplateSet, error) {
	exemplar, err := os.ReadFile(filepath.Join(dir, exemplarFile))
	if err != nil {
		return TemplateSet{}, fmt.Errorf("reading exemplar template %s: %w", exemplarFile, err)
	}

	ts := TemplateSet{Exemplar: string(exemplar)}

	apiDoc, err := os.ReadFile(filepath.Join(dir, apiDocFile))
	if err != nil {
		ts.APIDoc = apiDocFallback
	} else {
		ts.APIDoc = string(apiDoc)
	}

	return ts, nil
}

func planPrompt(question string) string {
	return fmt.Sprintf("Create detailed Manim lesson plan for: %s\n"+
		"Include 3-5 scenes with animation types (Create, Transform, etc.)\n"+
		"Format: bullet points with scene objectives and animation notes", question)
}

func generatePrompt(plan string, ts TemplateSet) string {
	return fmt.Sprintf(`Create a Manim scene that inherits from ManimVoiceoverBase. This base class provides:

1. Background image setup
2. Voice service configuration
3. Helper methods:
   - create_title(text): Creates properly sized titles, handles math notation
   - ensure_group_visible(group, margin): Ensures VGroups fit in frame

The scene should use these methods appropriately. For example:
- Use create_title() for section headings
- Use ensure_group_visible() for complex arrangements
- Background and voice are auto-configured in __init__

Generate Manim code with voiceovers using this structure:
%s

Convert this plan to Manim code following STRICT RULES:
%s

IMPORTANT: Only use the following colors (and their aliases) exactly as defined: %s. Do not invent or use any other color names.

RULES ENFORCED BY SYSTEM (MUST OBEY):
1. MATH RULES:
   - Use MathTex for mathematical content: fractions, Greek letters, operators, sub/superscripts.
   - Format: r"\frac{1}{2}" not r"$\frac{1}{2}$".
   - Never use Text/Tex for math content.
2. SCENE STRUCTURE:
   - Every scene method must end with self.clear() or include FadeOut of all mobjects except the background.
   - Narration goes through "with self.voiceover(text=...) as tracker:" blocks.
   - Suffix scene methods with _scene.
   - The construct() method must call the scene methods in order.
3. GENERATED CODE STRUCTURE:
   - Class name should reflect the topic.
   - Include between 3 and 5 scene methods.
   - Helper methods and all functions must include type hints.
4. PARAMETER VALIDATION:
   - Return type hints are required for all methods.
   - Validate and adjust mobject positions with ensure_group_visible().
5. VALIDATE AGAINST:
   - Text with math symbols.
   - Color type annotations (use string color names).
   - Missing scene cleanup.
6. LAYOUT & ALIGNMENT RULES:
   - Use Manim's built-in alignment utilities (align_to, next_to, VGroup().arrange(DOWN, buff=0.5)) to avoid overlapping visuals.
   - For layering, explicitly set foreground elements using self.add_foreground_mobjects() where needed.
7. VISUAL CONTENT RULES:
   - Do not import any assets like SVGs or images.
   - Use visual objects from the Manim API (Polygon, RegularPolygon, Star, Rectangle, Square, RoundedRectangle) as defined in the reference below.
   - If the lesson concept can benefit from a visualization, include at least one visual element to reinforce the narrative.

MANIM API REFERENCE:
%s

OUTPUT THE COMPLETE CODE WITH NO EXPLANATION.`, ts.Exemplar, plan, ColorList(), ts.APIDoc)
}

const correctionSystemPrompt = "You are an expert Manim developer. Fix the code based on " +
	"the error message while maintaining the original animation intent."

func correctionPrompt(errMsg, code, plan string, ts TemplateSet) string {
	correctionType := "execution"
	if isValidationError(errMsg) {
		correctionType = "validation"
	}

	return fmt.Sprintf(`Fix the following %s error in the Manim code:

ERROR:
%s

CURRENT CODE:
%s

ORIGINAL PLAN:
%s

MANIM API REFERENCE:
%s

REQUIREMENTS:
IMPORTANT: Only use the following colors (and their aliases) exactly as defined: %s. Do not invent or use any other color names.
1. Follow Manim's API exactly for class/method signatures
2. Use proper scene inheritance based on needed features
3. Ensure all animations are properly constructed
4. Clean up scenes appropriately
5. Replace any camera frame manipulations with proper object animations
6. Use MathTex for mathematical content
7. Ensure proper voiceover integration

COMMON FIXES:
1. For zoom effects: Scale objects instead of camera
   - Create VGroup of relevant objects
   - Use group.animate.scale()
2. For pan effects: Move objects instead of camera
   - Use group.animate.shift()
3. For math content: Use MathTex instead of Text
4. For scene cleanup: Add self.clear() or FadeOut

OUTPUT THE COMPLETE CORRECTED CODE WITH NO EXPLANATION.`,
		correctionType, errMsg, code, plan, ts.APIDoc, ColorList())
}
