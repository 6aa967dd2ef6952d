package genai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	googleai "google.golang.org/genai"
)

func TestClassifyGeminiError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"bad request", googleai.APIError{Code: 400, Message: "invalid argument"}, true},
		{"unauthenticated", googleai.APIError{Code: 401, Message: "API key not valid"}, true},
		{"forbidden", &googleai.APIError{Code: 403, Message: "permission denied"}, true},
		{"unknown model", fmt.Errorf("call: %w", googleai.APIError{Code: 404}), true},
		{"rate limited", googleai.APIError{Code: 429, Message: "quota"}, false},
		{"server error", googleai.APIError{Code: 503, Message: "unavailable"}, false},
		{"transport", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyGeminiError(tt.err)
			assert.Equal(t, tt.permanent, errors.Is(err, errPermanent))
		})
	}
}

func TestWithRetry_StopsOnPermanentGeminiError(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), 3, func(context.Context) (string, error) {
		calls++
		return "", classifyGeminiError(googleai.APIError{Code: 401, Message: "API key not valid"})
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGenerationFailed))
	assert.Equal(t, 1, calls)
}
