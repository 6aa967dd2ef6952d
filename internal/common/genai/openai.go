package genai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a senior business analyst and QA lead. Reply with JSON only."

// OpenAIClient generates text through an OpenAI-compatible chat completion API.
type OpenAIClient struct {
	client *openai.Client
	opts   Options
}

// NewOpenAIClient builds a client; baseURL overrides the API endpoint for
// compatible providers and may be empty.
func NewOpenAIClient(apiKey, baseURL string, opts Options) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(clientCfg), opts: opts}, nil
}

func (o *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, o.opts.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       o.opts.Model,
		Temperature: o.opts.Temperature,
		TopP:        o.opts.TopP,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if o.opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	return withRetry(ctx, o.opts.MaxRetries, func(ctx context.Context) (string, error) {
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", classifyOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("chat completion returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
}

func classifyOpenAIError(err error) error {
	code := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		code = reqErr.HTTPStatusCode
	}
	if permanentStatus(code) {
		return fmt.Errorf("%w: chat completion failed: %v", errPermanent, err)
	}
	return fmt.Errorf("chat completion failed: %w", err)
}
