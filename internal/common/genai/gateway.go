package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	httpclient "story-workers/internal/common/http"
)

// GatewayClient talks to an internal AI gateway exposing POST /api/ai/generate.
type GatewayClient struct {
	baseURL string
	opts    Options
	client  *httpclient.Client
}

func NewGatewayClient(baseURL, apiKey string, opts Options) *GatewayClient {
	// no client timeout; the context bounds each call
	client := httpclient.NewClient(0)
	if apiKey != "" {
		client.WithHeader("Authorization", "Bearer "+apiKey)
	}
	return &GatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		opts:    opts,
		client:  client,
	}
}

type gatewayRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model,omitempty"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
	Format      string  `json:"format,omitempty"`
}

type gatewayResponse struct {
	Text string `json:"text"`
}

func (c *GatewayClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, c.opts.Timeout)
	defer cancel()

	payload := gatewayRequest{
		Prompt:      prompt,
		Model:       c.opts.Model,
		Temperature: c.opts.Temperature,
		TopP:        c.opts.TopP,
	}
	if c.opts.JSONMode {
		payload.Format = "json"
	}

	return withRetry(ctx, c.opts.MaxRetries, func(ctx context.Context) (string, error) {
		var out gatewayResponse
		err := c.client.PostJSON(ctx, c.baseURL+"/api/ai/generate", payload, &out)
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return "", fmt.Errorf("%w: %v", errPermanent, err)
		}
		if err != nil {
			return "", err
		}
		return out.Text, nil
	})
}
