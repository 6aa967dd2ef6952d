// Package genai is the boundary to the text generation service. Every
// backend reduces to Generate(prompt) -> text.
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"story-workers/internal/common/config"
)

var (
	ErrGenerationTimeout = errors.New("GENERATION_TIMEOUT")
	ErrGenerationFailed  = errors.New("GENERATION_FAILED")
)

// Generator sends one prompt and returns the raw response text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Options carries the sampling settings shared by all backends.
type Options struct {
	Model       string
	Temperature float32
	TopP        float32
	JSONMode    bool
	Timeout     time.Duration
	MaxRetries  int
}

// OptionsFromConfig maps the genai config section to Options.
func OptionsFromConfig(cfg config.GenAIConfig) Options {
	return Options{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		JSONMode:    cfg.JSONMode,
		Timeout:     config.GetDuration(cfg.Timeout),
		MaxRetries:  cfg.MaxRetries,
	}
}

// New builds the generator selected by cfg.Provider.
func New(ctx context.Context, cfg config.GenAIConfig) (Generator, error) {
	opts := OptionsFromConfig(cfg)
	switch cfg.Provider {
	case config.ProviderGateway:
		return NewGatewayClient(cfg.BaseURL, cfg.APIKey, opts), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg.APIKey, opts)
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, opts)
	default:
		return nil, fmt.Errorf("unsupported genai provider %q", cfg.Provider)
	}
}

// withRetry runs call up to maxRetries+1 times with exponential backoff
// (100ms, 200ms, 400ms, ...). Errors come back wrapped in
// ErrGenerationTimeout or ErrGenerationFailed.
func withRetry(ctx context.Context, maxRetries int, call func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrGenerationTimeout, ctx.Err())
			}
		}

		text, err := call(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrGenerationTimeout, ctx.Err())
		}
		if errors.Is(err, errPermanent) {
			break
		}
	}
	return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}

// errPermanent marks failures that a retry cannot fix.
var errPermanent = errors.New("permanent failure")

// permanentStatus reports whether a provider status code means the request
// itself is wrong: bad input, bad credentials or an unknown model.
func permanentStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
