package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"mathmotion.app/studio/common/id"
	"mathmotion.app/studio/common/llm"
	"mathmotion.app/studio/common/logger"
	"mathmotion.app/studio/common/otel"
	"mathmotion.app/studio/core/config"
	"mathmotion.app/studio/internal/http/middleware"
	httprouter "mathmotion.app/studio/internal/http/router"
	"mathmotion.app/studio/internal/job"
	"mathmotion.app/studio/internal/notify"
	"mathmotion.app/studio/internal/pipeline"
	"mathmotion.app/studio/internal/queue"
	"mathmotion.app/studio/internal/renderer"
	"mathmotion.app/studio/internal/worker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "studio starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	templates, err := pipeline.LoadTemplates(cfg.Pipeline.TemplatesDir)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load templates", "error", err)
		os.Exit(1)
	}

	planner, coder, corrector, err := buildCompleters(cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build llm clients", "error", err)
		os.Exit(1)
	}

	manim := renderer.NewManim(cfg.Renderer.Binary, cfg.Renderer.Quality,
		cfg.Renderer.MediaDir, cfg.Renderer.Timeout)

	pipe, err := pipeline.New(pipeline.Options{
		Planner:      planner,
		Coder:        coder,
		Corrector:    corrector,
		Renderer:     manim,
		Templates:    templates,
		GeneratedDir: cfg.Pipeline.GeneratedDir,
		DebugDir:     cfg.Pipeline.DebugDir,
		MaxAttempts:  cfg.Pipeline.MaxCorrectionAttempts,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to build pipeline", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.RedisStream)

	producer := queue.NewRedisProducer(redisClient, cfg.Queue.RedisStream, slog.Default())
	defer producer.Close()

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:      cfg.Queue.RedisStream,
		Group:       cfg.Queue.RedisGroup,
		Consumer:    cfg.Queue.RedisConsumer,
		DLQStream:   cfg.Queue.RedisDLQStream,
		BatchSize:   int64(cfg.Queue.Concurrency),
		Block:       5 * time.Second,
		MaxAttempts: cfg.Queue.MaxDeliveries,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up queue consumer", "error", err)
		os.Exit(1)
	}

	registry := job.NewRegistry()
	jobService := job.NewService(registry, pipeline.NewEngine(pipe), notify.NewMailer(cfg.SMTP))

	renderWorker := worker.New(consumer, jobService, worker.Config{
		MaxAttempts: cfg.Queue.MaxDeliveries,
		Concurrency: cfg.Queue.Concurrency,
	})

	reclaimer := worker.NewReclaimer(redisClient, worker.ReclaimerConfig{
		Stream:    cfg.Queue.RedisStream,
		Group:     cfg.Queue.RedisGroup,
		Consumer:  cfg.Queue.RedisConsumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  time.Minute,
		BatchSize: 10,
	}, consumer, renderWorker.ProcessMessage)

	workerCtx, stopWorker := context.WithCancel(ctx)
	go func() {
		if err := renderWorker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			slog.ErrorContext(ctx, "render worker exited", "error", err)
		}
	}()
	go reclaimer.Run(workerCtx)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, registry, producer)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	// Drain in-flight renders before cancelling their context; cancellation
	// is only the hard-stop fallback once the loops have exited.
	reclaimer.Stop()
	renderWorker.Stop()
	stopWorker()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func buildCompleters(cfg config.Config) (planner, coder, corrector llm.Completer, err error) {
	planner, err = llm.NewCompleter(llmConfig(cfg.PlannerLLM))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("planner: %w", err)
	}
	coder, err = llm.NewCompleter(llmConfig(cfg.CoderLLM))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("coder: %w", err)
	}
	corrector, err = llm.NewCompleter(llmConfig(cfg.CorrectorLLM))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("corrector: %w", err)
	}
	return planner, coder, corrector, nil
}

func llmConfig(c config.LLMConfig) llm.Config {
	return llm.Config{
		Provider: c.Provider,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
		Model:    c.Model,
	}
}

func setupRouter(cfg config.Config, registry *job.Registry, producer queue.Producer) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())

	httprouter.SetupRoutes(router, registry, producer)

	return router
}

const banner = `
███████╗████████╗██╗   ██╗██████╗ ██╗ ██████╗
██╔════╝╚══██╔══╝██║   ██║██╔══██╗██║██╔═══██╗
███████╗   ██║   ██║   ██║██║  ██║██║██║   ██║
╚════██║   ██║   ██║   ██║██║  ██║██║██║   ██║
███████║   ██║   ╚██████╔╝██████╔╝██║╚██████╔╝
╚══════╝   ╚═╝    ╚═════╝ ╚═════╝ ╚═╝ ╚═════╝
`
