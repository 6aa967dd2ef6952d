package extractmodules

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-workers/internal/common/config"
	"story-workers/internal/common/errors"
	"story-workers/internal/common/genai"
	"story-workers/internal/common/logger"
	"story-workers/internal/common/validation"
	"story-workers/internal/generation"
	"story-workers/pkg/registry"
)

// ==========================
// Test Helpers
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "story-generation",
		ElementId:          "Activity_ExtractModules",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func newTestHandler(t *testing.T, gen genai.Generator) *Handler {
	t.Helper()
	log := logger.NewTestLogger(t)
	validator, err := validation.NewValidator(registry.Default())
	require.NoError(t, err)

	return NewHandler(HandlerOptions{
		Config:       &Config{Enabled: true, Timeout: 5 * time.Second},
		Orchestrator: generation.NewOrchestrator(gen, nil, generation.Settings{}, log, nil),
		Validator:    validator,
		Logger:       log,
	})
}

func reply(text string) genai.Generator {
	return genai.GeneratorFunc(func(context.Context, string) (string, error) {
		return text, nil
	})
}

// ==========================
// Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t, reply("[]"))

	input, err := h.parseInput(createMockJob(1, map[string]interface{}{"requirementText": "A shop with login."}))
	require.NoError(t, err)
	assert.Equal(t, "A shop with login.", input.RequirementText)

	_, err = h.parseInput(createMockJob(2, map[string]interface{}{"requirementText": ""}))
	assert.Equal(t, errors.ErrCodeInputValidationFailed, errors.CodeOf(err))

	_, err = h.parseInput(createMockJob(3, map[string]interface{}{}))
	assert.Equal(t, errors.ErrCodeInputValidationFailed, errors.CodeOf(err))
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name        string
		gen         genai.Generator
		wantModules []string
		wantWarning bool
	}{
		{
			name:        "fenced module list",
			gen:         reply("Here you go:\n```json\n[{\"module\":\"Login\",\"features\":[\"sign in\"]},{\"module\":\"Cart\"}]\n```"),
			wantModules: []string{"Login", "Cart"},
		},
		{
			name:        "duplicate names collapse",
			gen:         reply(`[{"module":"Login"},{"name":"login"}]`),
			wantModules: []string{"Login"},
		},
		{
			name:        "prose only",
			gen:         reply("I could not find any modules."),
			wantModules: []string{},
			wantWarning: true,
		},
		{
			name: "service failure",
			gen: genai.GeneratorFunc(func(context.Context, string) (string, error) {
				return "", fmt.Errorf("%w: status 500", genai.ErrGenerationFailed)
			}),
			wantModules: []string{},
			wantWarning: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, tt.gen)

			out, err := h.Execute(context.Background(), &Input{RequirementText: "req"})
			require.NoError(t, err)

			names := make([]string, len(out.Modules))
			for i, m := range out.Modules {
				names[i] = m.Name
			}
			assert.Equal(t, tt.wantModules, names)
			assert.Equal(t, len(tt.wantModules), out.ModuleCount)
			assert.Equal(t, tt.wantWarning, out.Warning != "")
		})
	}
}

func TestConfigFromApp(t *testing.T) {
	cfg := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: true, Timeout: 90000},
	}}

	wc := ConfigFromApp(cfg)
	assert.True(t, wc.Enabled)
	assert.Equal(t, 90*time.Second, wc.Timeout)
	assert.NoError(t, wc.Validate())

	assert.Error(t, (&Config{}).Validate())
}
