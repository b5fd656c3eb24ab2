package pipeline

import (
	"context"

	"mathmotion.app/studio/common/llm"
	"mathmotion.app/studio/internal/renderer"
)

// fakeCompleter replays canned responses; the last one repeats. err fails
// every call, errs fails specific calls by index.
type fakeCompleter struct {
	responses []string
	err       error
	errs      []error
	calls     int
}

func (f *fakeCompleter) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	idx := f.calls - 1
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return &llm.Response{Text: f.responses[idx]}, nil
}

func (f *fakeCompleter) Model() string { return "fake-model" }

type fakeRenderer struct {
	results []*renderer.Result
	errs    []error
	calls   int
}

func (f *fakeRenderer) Render(_ context.Context, _ string) (*renderer.Result, error) {
	f.calls++
	idx := f.calls - 1
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	return f.results[idx], nil
}

const validScene = `from manim import *
from app.templates.base.scene_base import ManimVoiceoverBase

class GCFScene(ManimVoiceoverBase):
    def construct(self):
        self.intro_scene()

    def intro_scene(self) -> None:
        title = Text("Greatest Common Factor", color="blue")
        with self.voiceover(text="We will find the GCF of 18 and 24.") as tracker:
            self.play(Write(title), run_time=tracker.duration)
        self.play(
            *[FadeOut(mob) for mob in self.mobjects if mob != self.background]
        )
`

// Parses fine but inherits from a plain Scene: validation must reject it.
const wrongBaseScene = `from manim import *

class BadScene(Scene):
    def construct(self):
        self.intro_scene()

    def intro_scene(self) -> None:
        title = Text("Nope", color="blue")
        with self.voiceover(text="This will not pass.") as tracker:
            self.play(Write(title), run_time=tracker.duration)
        self.play(
            *[FadeOut(mob) for mob in self.mobjects if mob != self.background]
        )
`

const missingCleanupScene = `from manim import *
from app.templates.base.scene_base import ManimVoiceoverBase

class NoCleanup(ManimVoiceoverBase):
    def construct(self):
        self.intro_scene()

    def intro_scene(self) -> None:
        title = Text("Hi", color="blue")
        with self.voiceover(text="No cleanup here.") as tracker:
            self.play(Write(title), run_time=tracker.duration)
`

func testTemplates() TemplateSet {
	return TemplateSet{
		Exemplar: validScene,
		APIDoc:   "Manim API v0.19.0 - Basic shapes and transformations",
	}
}

func newTestPipeline(coder, corrector *fakeCompleter, rend renderer.Renderer, dir string, maxAttempts int) *Pipeline {
	planner := &fakeCompleter{responses: []string{"Scene 1: introduce the topic\nScene 2: work the example\nScene 3: summary"}}
	p, err := New(Options{
		Planner:      planner,
		Coder:        coder,
		Corrector:    corrector,
		Renderer:     rend,
		Templates:    testTemplates(),
		GeneratedDir: dir,
		MaxAttempts:  maxAttempts,
	})
	if err != nil {
		panic(err)
	}
	return p
}
