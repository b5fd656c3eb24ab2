package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"mathmotion.app/studio/internal/renderer"
)

var _ = Describe("Engine", func() {
	var (
		ctx context.Context
		dir string
	)

	okRender := func() *fakeRenderer {
		return &fakeRenderer{results: []*renderer.Result{
			{ExitCode: 0, VideoFile: "media/videos/scene/480p15/GCFScene.mp4"},
		}}
	}

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
	})

	Describe("happy path", func() {
		It("completes with no corrections when generation is valid", func() {
			coder := &fakeCompleter{responses: []string{validScene}}
			corrector := &fakeCompleter{responses: []string{validScene}}
			p := newTestPipeline(coder, corrector, okRender(), dir, 3)

			final, err := NewEngine(p).Run(ctx, NewState("What is the GCF of 18 and 24?"), nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(final.Failed()).To(BeFalse())
			Expect(final.CorrectionAttempts).To(BeZero())
			Expect(final.ExecutionResult).NotTo(BeNil())
			Expect(final.ExecutionResult.VideoFile).To(HaveSuffix(".mp4"))
			Expect(corrector.calls).To(BeZero())

			written, readErr := os.ReadFile(final.ExecutionResult.SceneFile)
			Expect(readErr).NotTo(HaveOccurred())
			Expect(string(written)).To(ContainSubstring("class GCFScene"))
		})
	})

	Describe("single correction", func() {
		It("recovers when the first generation fails validation", func() {
			coder := &fakeCompleter{responses: []string{wrongBaseScene}}
			corrector := &fakeCompleter{responses: []string{validScene}}
			p := newTestPipeline(coder, corrector, okRender(), dir, 3)

			final, err := NewEngine(p).Run(ctx, NewState("What is the GCF of 18 and 24?"), nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(final.Failed()).To(BeFalse())
			Expect(final.CorrectionAttempts).To(Equal(1))
			Expect(final.ExecutionResult).NotTo(BeNil())
			Expect(corrector.calls).To(Equal(1))
		})
	})

	Describe("budget exhaustion", func() {
		It("terminates with the fixed budget error when every attempt is invalid", func() {
			coder := &fakeCompleter{responses: []string{wrongBaseScene}}
			corrector := &fakeCompleter{responses: []string{wrongBaseScene}}
			p := newTestPipeline(coder, corrector, okRender(), dir, 3)

			final, err := NewEngine(p).Run(ctx, NewState("explain prime numbers"), nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(final.Failed()).To(BeTrue())
			Expect(final.Err).To(ContainSubstring("Maximum correction attempts"))
			Expect(final.CorrectionAttempts).To(Equal(3))
		})

		It("never exceeds the budget regardless of failure mix", func() {
			coder := &fakeCompleter{responses: []string{missingCleanupScene}}
			corrector := &fakeCompleter{responses: []string{missingCleanupScene}}
			p := newTestPipeline(coder, corrector, okRender(), dir, 3)

			final, err := NewEngine(p).Run(ctx, NewState("explain fractions"), nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(final.CorrectionAttempts).To(BeNumerically("<=", 3))
		})
	})

	Describe("transient corrector failure", func() {
		It("retries through validate instead of terminating", func() {
			coder := &fakeCompleter{responses: []string{wrongBaseScene}}
			corrector := &fakeCompleter{
				responses: []string{validScene},
				errs:      []error{fmt.Errorf("transient 500 from provider")},
			}
			p := newTestPipeline(coder, corrector, okRender(), dir, 3)

			final, err := NewEngine(p).Run(ctx, NewState("explain fractions"), nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(final.Failed()).To(BeFalse())
			Expect(final.CorrectionAttempts).To(Equal(2))
			Expect(corrector.calls).To(Equal(2))
		})

		It("still terminates once the budget is spent", func() {
			coder := &fakeCompleter{responses: []string{wrongBaseScene}}
			corrector := &fakeCompleter{err: fmt.Errorf("provider down")}
			p := newTestPipeline(coder, corrector, okRender(), dir, 3)

			final, err := NewEngine(p).Run(ctx, NewState("explain fractions"), nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(final.Failed()).To(BeTrue())
			Expect(final.CorrectionAttempts).To(Equal(3))
			Expect(final.Err).To(ContainSubstring("Maximum correction attempts"))
		})
	})

	Describe("plan failure", func() {
		It("terminates without touching later stages", func() {
			p, buildErr := New(Options{
				Planner:      &fakeCompleter{err: fmt.Errorf("llm unavailable")},
				Coder:        &fakeCompleter{responses: []string{validScene}},
				Corrector:    &fakeCompleter{responses: []string{validScene}},
				Renderer:     okRender(),
				Templates:    testTemplates(),
				GeneratedDir: dir,
			})
			Expect(buildErr).NotTo(HaveOccurred())

			final, err := NewEngine(p).Run(ctx, NewState("what is calculus"), nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(final.Failed()).To(BeTrue())
			Expect(final.Err).To(ContainSubstring("Failed to generate scene plan"))
			Expect(final.Stage).To(Equal(StagePlan))
			Expect(final.GeneratedCode).To(BeEmpty())
		})
	})

	Describe("execution failure", func() {
		It("routes a renderer failure through correction and succeeds", func() {
			coder := &fakeCompleter{responses: []string{validScene}}
			corrector := &fakeCompleter{responses: []string{validScene}}
			rend := &fakeRenderer{
				results: []*renderer.Result{
					{ExitCode: 1, Stderr: "Traceback...\nNameError: name 'Wrte' is not defined"},
					{ExitCode: 0, VideoFile: "media/videos/scene/480p15/GCFScene.mp4"},
				},
			}
			p := newTestPipeline(coder, corrector, rend, dir, 3)

			final, err := NewEngine(p).Run(ctx, NewState("What is the GCF of 18 and 24?"), nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(final.Failed()).To(BeFalse())
			Expect(final.CorrectionAttempts).To(Equal(1))
			Expect(rend.calls).To(Equal(2))
		})

		It("reports a timeout-specific error", func() {
			coder := &fakeCompleter{responses: []string{validScene}}
			p := newTestPipeline(coder, &fakeCompleter{responses: []string{validScene}},
				&fakeRenderer{errs: []error{fmt.Errorf("%w after 180s", renderer.ErrTimeout)}},
				dir, 3)

			st := p.validate(ctx, State{
				UserInput:     "What is the GCF of 18 and 24?",
				GeneratedCode: validScene,
			})
			Expect(st.Failed()).To(BeFalse())

			st = p.execute(ctx, st)
			Expect(st.Failed()).To(BeTrue())
			Expect(st.Err).To(ContainSubstring("Renderer timed out"))
			Expect(st.ExecutionResult).To(BeNil())
		})
	})

	Describe("observer", func() {
		It("sees every stage in order", func() {
			coder := &fakeCompleter{responses: []string{validScene}}
			p := newTestPipeline(coder, &fakeCompleter{responses: []string{validScene}}, okRender(), dir, 3)

			var stages []Stage
			_, err := NewEngine(p).Run(ctx, NewState("What is the GCF of 18 and 24?"), func(st State) {
				stages = append(stages, st.Stage)
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(stages).To(Equal([]Stage{StagePlan, StageCode, StageValidate, StageExecute}))
		})
	})

	Describe("cancellation", func() {
		It("stops between stages when the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			coder := &fakeCompleter{responses: []string{validScene}}
			p := newTestPipeline(coder, &fakeCompleter{responses: []string{validScene}}, okRender(), dir, 3)

			_, err := NewEngine(p).Run(cancelled, NewState("anything"), nil)
			Expect(err).To(MatchError(ContainSubstring("workflow interrupted")))
		})
	})
})

var _ = Describe("Validate", func() {
	var (
		ctx context.Context
		p   *Pipeline
	)

	BeforeEach(func() {
		ctx = context.Background()
		p = newTestPipeline(
			&fakeCompleter{responses: []string{validScene}},
			&fakeCompleter{responses: []string{validScene}},
			&fakeRenderer{results: []*renderer.Result{{ExitCode: 0}}},
			GinkgoT().TempDir(), 3)
	})

	It("accepts the exemplar-shaped scene", func() {
		st := p.validate(ctx, State{GeneratedCode: validScene})
		Expect(st.Failed()).To(BeFalse())
	})

	It("is idempotent", func() {
		first := p.validate(ctx, State{GeneratedCode: wrongBaseScene})
		second := p.validate(ctx, first)
		Expect(second.Err).To(Equal(first.Err))
	})

	It("rejects a missing scene class base", func() {
		st := p.validate(ctx, State{GeneratedCode: wrongBaseScene})
		Expect(st.Err).To(ContainSubstring("inherit from VoiceoverScene or ManimVoiceoverBase"))
	})

	It("rejects missing cleanup", func() {
		st := p.validate(ctx, State{GeneratedCode: missingCleanupScene})
		Expect(st.Err).To(ContainSubstring("cleanup"))
	})

	It("accepts self.clear() as a cleanup idiom", func() {
		code := strings.Replace(missingCleanupScene,
			"self.play(Write(title), run_time=tracker.duration)",
			"self.play(Write(title), run_time=tracker.duration)\n        self.clear()", 1)
		st := p.validate(ctx, State{GeneratedCode: code})
		Expect(st.Failed()).To(BeFalse())
	})

	It("rejects a bare voiceover call", func() {
		code := strings.Replace(validScene,
			`with self.voiceover(text="We will find the GCF of 18 and 24.") as tracker:
            self.play(Write(title), run_time=tracker.duration)`,
			`self.voiceover(text="We will find the GCF of 18 and 24.")
        self.play(Write(title))`, 1)
		st := p.validate(ctx, State{GeneratedCode: code})
		Expect(st.Err).To(ContainSubstring("block form"))
	})

	It("collects every disallowed color in one report", func() {
		code := strings.Replace(validScene, `color="blue"`, `color="cyan"`, 1) +
			"\n# extra\nbox = Square(color=\"neon\")\n"
		st := p.validate(ctx, State{GeneratedCode: code})
		Expect(st.Err).To(HavePrefix("validation failures:"))
		Expect(st.Err).To(ContainSubstring("cyan"))
		Expect(st.Err).To(ContainSubstring("neon"))
	})

	It("rejects unparseable source as a syntax error", func() {
		st := p.validate(ctx, State{GeneratedCode: "def broken(:\n    pass"})
		Expect(st.Err).To(ContainSubstring("Syntax error"))
	})

	It("fails when there is no code at all", func() {
		st := p.validate(ctx, State{})
		Expect(st.Err).To(Equal("No code to validate"))
	})
})
