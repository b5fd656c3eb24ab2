package job

import (
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"mathmotion.app/studio/common/llm"
	"mathmotion.app/studio/internal/pipeline"
	"mathmotion.app/studio/internal/renderer"
)

func TestJob(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Job Suite")
}

const serviceTestScene = `from manim import *
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

type stubCompleter struct {
	text string
	err  error
}

func (s *stubCompleter) Complete(context.Context, llm.Request) (*llm.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Text: s.text}, nil
}

func (s *stubCompleter) Model() string { return "stub" }

type stubRenderer struct {
	result renderer.Result
}

func (s *stubRenderer) Render(context.Context, string) (*renderer.Result, error) {
	out := s.result
	return &out, nil
}

type spyNotifier struct {
	completed []string
	failed    []string
}

func (s *spyNotifier) JobCompleted(_ context.Context, email, _, _ string) {
	s.completed = append(s.completed, email)
}

func (s *spyNotifier) JobFailed(_ context.Context, email, _, _ string) {
	s.failed = append(s.failed, email)
}

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		notifier *spyNotifier
	)

	newService := func(planner, coder llm.Completer, rend renderer.Renderer) *Service {
		p, err := pipeline.New(pipeline.Options{
			Planner:   planner,
			Coder:     coder,
			Corrector: coder,
			Renderer:  rend,
			Templates: pipeline.TemplateSet{
				Exemplar: serviceTestScene,
				APIDoc:   "Manim API v0.19.0",
			},
			GeneratedDir: GinkgoT().TempDir(),
		})
		Expect(err).NotTo(HaveOccurred())
		return NewService(NewRegistry(), pipeline.NewEngine(p), notifier)
	}

	BeforeEach(func() {
		ctx = context.Background()
		notifier = &spyNotifier{}
	})

	It("completes a job and records the result", func() {
		svc := newService(
			&stubCompleter{text: "Scene 1: introduce the topic"},
			&stubCompleter{text: serviceTestScene},
			&stubRenderer{result: renderer.Result{ExitCode: 0, VideoFile: "media/videos/480p15/GCFScene.mp4"}})

		jobID := svc.Registry().Create("What is the GCF of 18 and 24?")
		svc.Run(ctx, jobID, "What is the GCF of 18 and 24?", "student@example.com")

		j, err := svc.Registry().Get(jobID)
		Expect(err).NotTo(HaveOccurred())
		Expect(j.Status).To(Equal(StatusCompleted))
		Expect(j.ResultURL).To(Equal("media/videos/480p15/GCFScene.mp4"))
		Expect(j.Logs).NotTo(BeEmpty())
		Expect(j.Logs[0]).To(Equal("Processing started"))

		joined := strings.Join(j.Logs, "\n")
		for _, stage := range []string{"plan", "code", "validate", "execute"} {
			Expect(joined).To(ContainSubstring("Stage " + stage))
		}

		Expect(notifier.completed).To(Equal([]string{"student@example.com"}))
		Expect(notifier.failed).To(BeEmpty())
	})

	It("falls back to the scene file when no video was produced", func() {
		svc := newService(
			&stubCompleter{text: "Scene 1: introduce the topic"},
			&stubCompleter{text: serviceTestScene},
			&stubRenderer{result: renderer.Result{ExitCode: 0}})

		jobID := svc.Registry().Create("explain fractions")
		svc.Run(ctx, jobID, "explain fractions", "")

		j, err := svc.Registry().Get(jobID)
		Expect(err).NotTo(HaveOccurred())
		Expect(j.Status).To(Equal(StatusCompleted))
		Expect(j.ResultURL).To(HaveSuffix(".py"))
		Expect(notifier.completed).To(BeEmpty())
	})

	It("marks the job failed with the pipeline error verbatim", func() {
		svc := newService(
			&stubCompleter{err: errors.New("llm unavailable")},
			&stubCompleter{text: serviceTestScene},
			&stubRenderer{result: renderer.Result{ExitCode: 0}})

		jobID := svc.Registry().Create("explain fractions")
		svc.Run(ctx, jobID, "explain fractions", "student@example.com")

		j, err := svc.Registry().Get(jobID)
		Expect(err).NotTo(HaveOccurred())
		Expect(j.Status).To(Equal(StatusFailed))
		Expect(j.Error).To(ContainSubstring("Failed to generate scene plan"))
		Expect(notifier.failed).To(Equal([]string{"student@example.com"}))
		Expect(notifier.completed).To(BeEmpty())
	})

	It("does nothing for an unknown job", func() {
		svc := newService(
			&stubCompleter{text: "plan"},
			&stubCompleter{text: serviceTestScene},
			&stubRenderer{result: renderer.Result{ExitCode: 0}})

		svc.Run(ctx, "missing", "explain fractions", "")

		_, err := svc.Registry().Get("missing")
		Expect(err).To(MatchError(ErrNotFound))
	})
})
