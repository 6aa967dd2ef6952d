package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-workers/pkg/registry"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(registry.Default())
	require.NoError(t, err)
	return v
}

func TestValidator_Validate(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name       string
		taskType   string
		input      map[string]interface{}
		valid      bool
		errorField string
	}{
		{
			name:     "valid story request",
			taskType: "generate-stories",
			input: map[string]interface{}{
				"project": "shop", "module": "Login", "requirementText": "users log in",
				"batchSize": float64(5),
			},
			valid: true,
		},
		{
			name:       "missing requirement text",
			taskType:   "generate-stories",
			input:      map[string]interface{}{"project": "shop", "module": "Login"},
			errorField: "requirementText",
		},
		{
			name:     "batch size out of range",
			taskType: "generate-stories",
			input: map[string]interface{}{
				"project": "shop", "module": "Login", "requirementText": "x", "batchSize": float64(500),
			},
			errorField: "batchSize",
		},
		{
			name:       "project with path separator",
			taskType:   "generate-test-cases",
			input:      map[string]interface{}{"project": "../shop", "module": "Login"},
			errorField: "project",
		},
		{
			name:     "unknown kind",
			taskType: "review-batch",
			input: map[string]interface{}{
				"project": "shop", "module": "Login", "kind": "epics", "decision": "approve",
			},
			errorField: "kind",
		},
		{
			name:     "unregistered task type accepts anything",
			taskType: "something-else",
			input:    nil,
			valid:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.Validate(tt.taskType, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid, result.Summary())
			if tt.errorField != "" {
				assert.True(t, result.HasErrors(tt.errorField), result.Summary())
			}
		})
	}
}

func TestValidateInput_AdHocSchema(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"name"},
	}

	result, err := ValidateInput(map[string]interface{}{}, schema)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "REQUIRED", result.Errors[0].Code)
	assert.Contains(t, result.GetErrorMessages()[0], "name")
}
