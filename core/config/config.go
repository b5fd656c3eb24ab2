package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env          string
	Port         string
	OTel         OTelConfig
	Queue        QueueConfig
	PlannerLLM   LLMConfig
	CoderLLM     LLMConfig
	CorrectorLLM LLMConfig
	Renderer     RendererConfig
	Pipeline     PipelineConfig
	SMTP         SMTPConfig
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type QueueConfig struct {
	RedisURL       string
	RedisStream    string
	RedisGroup     string
	RedisDLQStream string
	RedisConsumer  string
	Concurrency    int
	MaxDeliveries  int
}

type LLMConfig struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string
	BaseURL   string // Optional: for custom endpoints
	Model     string
	MaxTokens int
}

type RendererConfig struct {
	Binary   string
	Quality  string
	MediaDir string
	Timeout  time.Duration
}

type PipelineConfig struct {
	MaxCorrectionAttempts int
	GeneratedDir          string
	TemplatesDir          string
	DebugDir              string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeRender ServiceType = "render"
)

// Load loads configuration from environment variables.
// In development it loads from a service-specific .env file first
// (.env.server, .env.render), falling back to .env.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("STUDIO_ENV", "development") == "development" {
		envFile := ".env." + string(serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:  getEnv("STUDIO_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "studio"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Queue: QueueConfig{
			RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
			RedisStream:    getEnv("REDIS_STREAM", "studio_renders"),
			RedisGroup:     getEnv("REDIS_CONSUMER_GROUP", "studio_group"),
			RedisDLQStream: getEnv("REDIS_DLQ_STREAM", "studio_renders_dlq"),
			RedisConsumer:  getEnv("REDIS_CONSUMER_NAME", "studio-server"),
			Concurrency:    getEnvInt("RENDER_CONCURRENCY", 2),
			MaxDeliveries:  getEnvInt("QUEUE_MAX_DELIVERIES", 3),
		},
		PlannerLLM:   llmConfig("PLANNER"),
		CoderLLM:     llmConfig("CODER"),
		CorrectorLLM: llmConfig("CORRECTOR"),
		Renderer: RendererConfig{
			Binary:   getEnv("MANIM_BINARY", "manim"),
			Quality:  getEnv("MANIM_QUALITY", "-ql"),
			MediaDir: getEnv("MANIM_MEDIA_DIR", "media"),
			Timeout:  time.Duration(getEnvInt("EXECUTION_TIMEOUT_SECONDS", 180)) * time.Second,
		},
		Pipeline: PipelineConfig{
			MaxCorrectionAttempts: getEnvInt("MAX_CORRECTION_ATTEMPTS", 3),
			GeneratedDir:          getEnv("GENERATED_DIR", "generated"),
			TemplatesDir:          getEnv("TEMPLATES_DIR", "templates"),
			DebugDir:              getEnv("DEBUG_DIR", ""),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "studio@mathmotion.app"),
		},
	}

	return cfg, nil
}

// llmConfig reads one stage's LLM settings, with STUDIO_LLM_* as shared defaults
// so a single key/model can drive all three stages.
func llmConfig(prefix string) LLMConfig {
	return LLMConfig{
		Provider:  getEnv(prefix+"_LLM_PROVIDER", getEnv("STUDIO_LLM_PROVIDER", "openai")),
		APIKey:    getEnv(prefix+"_LLM_API_KEY", getEnv("STUDIO_LLM_API_KEY", "")),
		BaseURL:   getEnv(prefix+"_LLM_BASE_URL", getEnv("STUDIO_LLM_BASE_URL", "")),
		Model:     getEnv(prefix+"_LLM_MODEL", getEnv("STUDIO_LLM_MODEL", "")),
		MaxTokens: getEnvInt(prefix+"_LLM_MAX_TOKENS", 8192),
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}
