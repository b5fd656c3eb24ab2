package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
)

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "missing API key",
			cfg:     Config{Provider: ProviderOpenAI},
			wantErr: true,
		},
		{
			name:    "unsupported provider",
			cfg:     Config{Provider: "bard", APIKey: "k"},
			wantErr: true,
		},
		{
			name: "openai",
			cfg:  Config{Provider: ProviderOpenAI, APIKey: "k", Model: "gpt-4o"},
		},
		{
			name: "anthropic",
			cfg:  Config{Provider: ProviderAnthropic, APIKey: "k"},
		},
		{
			name: "empty provider defaults to openai",
			cfg:  Config{APIKey: "k"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompleter(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewCompleter(%+v) succeeded, want error", tt.cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewCompleter: %v", err)
			}
			if c.Model() == "" {
				t.Error("Model() is empty, want a default")
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	ctx := context.Background()

	if IsRetryable(ctx, nil) {
		t.Error("nil error should not be retryable")
	}
	if IsRetryable(ctx, context.Canceled) {
		t.Error("cancellation should not be retryable")
	}
	if !IsRetryable(ctx, &openai.Error{StatusCode: 429}) {
		t.Error("rate limit should be retryable")
	}
	if !IsRetryable(ctx, &openai.Error{StatusCode: 503}) {
		t.Error("server error should be retryable")
	}
	if IsRetryable(ctx, &openai.Error{StatusCode: 400}) {
		t.Error("client error should not be retryable")
	}
	if !IsRetryable(ctx, errors.New("connection reset")) {
		t.Error("network error should be retryable")
	}
}
