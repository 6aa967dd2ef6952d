package genai

import (
	"context"
	"errors"
	"fmt"

	googleai "google.golang.org/genai"
)

// GeminiClient generates text through the Gemini API.
type GeminiClient struct {
	client *googleai.Client
	opts   Options
}

func NewGeminiClient(ctx context.Context, apiKey string, opts Options) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.0-flash"
	}

	client, err := googleai.NewClient(ctx, &googleai.ClientConfig{
		APIKey:  apiKey,
		Backend: googleai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client, opts: opts}, nil
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.opts.Timeout)
	defer cancel()

	cfg := &googleai.GenerateContentConfig{
		Temperature: googleai.Ptr(g.opts.Temperature),
		TopP:        googleai.Ptr(g.opts.TopP),
	}
	if g.opts.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}

	return withRetry(ctx, g.opts.MaxRetries, func(ctx context.Context) (string, error) {
		resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model, googleai.Text(prompt), cfg)
		if err != nil {
			return "", classifyGeminiError(err)
		}
		return resp.Text(), nil
	})
}

// classifyGeminiError marks request and credential failures as permanent so
// they are not retried.
func classifyGeminiError(err error) error {
	var apiErr googleai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *googleai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return fmt.Errorf("GenAI generate failed: %w", err)
		}
		apiErr = *ptr
	}
	if permanentStatus(apiErr.Code) {
		return fmt.Errorf("%w: GenAI generate failed: %v", errPermanent, err)
	}
	return fmt.Errorf("GenAI generate failed: %w", err)
}
