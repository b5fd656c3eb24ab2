package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RenderTask asks a worker to run the full pipeline for one job.
type RenderTask struct {
	JobID    string
	Question string
	Email    string
	TraceID  string
	Attempt  int
}

type Producer interface {
	Enqueue(ctx context.Context, task RenderTask) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, task RenderTask) error {
	attempt := task.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	fields := map[string]any{
		"job_id":   task.JobID,
		"question": task.Question,
		"attempt":  attempt,
	}
	if task.Email != "" {
		fields["email"] = task.Email
	}
	if task.TraceID != "" {
		fields["trace_id"] = task.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue render task: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued render task", "job_id", task.JobID, "attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
