package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mathmotion.app/studio/common/logger"
	"mathmotion.app/studio/internal/job"
	"mathmotion.app/studio/internal/queue"
)

type Config struct {
	MaxAttempts int // queue delivery attempts before DLQ
	Concurrency int // concurrent renders; renders are CPU/IO heavy
}

// Worker consumes render tasks from the stream and hands each one to the job
// service. Render jobs run concurrently up to the configured limit; the read
// loop itself stays single-threaded.
type Worker struct {
	consumer *queue.RedisConsumer
	jobs     *job.Service
	cfg      Config

	sem chan struct{}
	wg  sync.WaitGroup

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer *queue.RedisConsumer, jobs *job.Service, cfg Config) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		consumer:  consumer,
		jobs:      jobs,
		cfg:       cfg,
		sem:       make(chan struct{}, cfg.Concurrency),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)
	defer w.wg.Wait()

	slog.InfoContext(ctx, "render worker started", "concurrency", w.cfg.Concurrency)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "render worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

// Stop blocks until the read loop has exited and in-flight renders finished.
func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		select {
		case w.sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		w.wg.Add(1)
		go func(msg queue.Message) {
			defer w.wg.Done()
			defer func() { <-w.sem }()
			_ = w.ProcessMessage(ctx, msg)
		}(msg)
	}

	return nil
}

// ProcessMessage runs one render task through the job service and settles the
// message: ack on success, requeue or DLQ on failure. Shared by the read loop
// and the reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	if err := w.processMessageSafe(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "message processing failed",
			"error", err,
			"message_id", msg.ID,
			"job_id", msg.JobID)
		w.handleFailedMessage(ctx, msg, err)
		return err
	}
	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Message will be redelivered; the job status check makes
		// redelivery a no-op.
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"message_id", msg.ID)
	}
	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"job_id", msg.JobID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.processMessage(ctx, msg)
}

func (w *Worker) processMessage(ctx context.Context, msg queue.Message) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		JobID:     logger.Ptr(msg.JobID),
		MessageID: logger.Ptr(msg.ID),
		Component: "studio.worker",
	})

	slog.InfoContext(ctx, "processing render task",
		"message_id", msg.ID,
		"job_id", msg.JobID,
		"attempt", msg.Attempt)

	current, err := w.jobs.Registry().Get(msg.JobID)
	if err != nil {
		return fmt.Errorf("looking up job: %w", err)
	}
	if current.Terminal() {
		// Redelivery of an already-finished job; jobs are never re-opened.
		slog.InfoContext(ctx, "job already terminal, skipping",
			"job_id", msg.JobID,
			"status", current.Status)
		return nil
	}

	w.jobs.Run(ctx, msg.JobID, msg.Question, msg.Email)
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max delivery attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"job_id", msg.JobID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"job_id", msg.JobID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
