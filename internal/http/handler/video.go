package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"mathmotion.app/studio/internal/http/dto"
	"mathmotion.app/studio/internal/job"
	"mathmotion.app/studio/internal/queue"
)

type VideoHandler struct {
	registry *job.Registry
	producer queue.Producer
}

func NewVideoHandler(registry *job.Registry, producer queue.Producer) *VideoHandler {
	return &VideoHandler{
		registry: registry,
		producer: producer,
	}
}

// Create registers a queued job and enqueues its render task. The workflow
// runs asynchronously; the response carries only the job ID to poll.
func (h *VideoHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID := h.registry.Create(req.Question)

	task := queue.RenderTask{
		JobID:    jobID,
		Question: req.Question,
		Email:    req.Email,
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		task.TraceID = sc.TraceID().String()
	}

	if err := h.producer.Enqueue(ctx, task); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue render task",
			"job_id", jobID,
			"error", err)
		_ = h.registry.SetFailed(jobID, "could not enqueue render task")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not accept job"})
		return
	}

	c.JSON(http.StatusAccepted, dto.CreateVideoResponse{
		JobID:  jobID,
		Status: string(job.StatusQueued),
	})
}

// Status returns the job record: status, stage, accumulated logs, and the
// result reference or error once terminal.
func (h *VideoHandler) Status(c *gin.Context) {
	j, err := h.registry.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}

	c.JSON(http.StatusOK, dto.ToVideoStatusResponse(j))
}
