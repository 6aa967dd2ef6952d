package generatestories

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-workers/internal/common/errors"
	"story-workers/internal/common/genai"
	"story-workers/internal/common/logger"
	"story-workers/internal/common/validation"
	"story-workers/internal/generation"
	"story-workers/internal/models"
	"story-workers/internal/storage/pending"
	"story-workers/internal/storage/projects"
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
		ElementId:          "Activity_GenerateStories",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

type fixture struct {
	handler  *Handler
	pending  *pending.Store
	projects *projects.Store
	prompts  []string
}

func setup(t *testing.T, replies ...string) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	log := logger.NewTestLogger(t)
	f := &fixture{
		pending:  pending.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour, log),
		projects: projects.NewStore(t.TempDir(), log),
	}

	gen := genai.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		f.prompts = append(f.prompts, prompt)
		if len(f.prompts) > len(replies) {
			return "[]", nil
		}
		return replies[len(f.prompts)-1], nil
	})

	validator, err := validation.NewValidator(registry.Default())
	require.NoError(t, err)

	f.handler = NewHandler(HandlerOptions{
		Config:       &Config{Enabled: true, Timeout: 5 * time.Second, BatchSize: 5, Iterations: 1},
		Orchestrator: generation.NewOrchestrator(gen, nil, generation.Settings{}, log, nil),
		Approved:     f.projects,
		Pending:      f.pending,
		Validator:    validator,
		Logger:       log,
	})
	return f
}

// ==========================
// Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
		check     func(t *testing.T, in *Input)
	}{
		{
			name:      "defaults from config",
			variables: map[string]interface{}{"project": "shop", "module": "Login", "requirementText": "req"},
			check: func(t *testing.T, in *Input) {
				assert.Equal(t, 5, in.BatchSize)
				assert.Equal(t, 1, in.Iterations)
			},
		},
		{
			name: "explicit loop bounds",
			variables: map[string]interface{}{
				"project": "shop", "module": "Login", "requirementText": "req",
				"batchSize": 3, "iterations": 2, "customInstruction": "focus on errors",
			},
			check: func(t *testing.T, in *Input) {
				assert.Equal(t, 3, in.BatchSize)
				assert.Equal(t, 2, in.Iterations)
				assert.Equal(t, "focus on errors", in.CustomInstruction)
			},
		},
		{
			name:      "missing module",
			variables: map[string]interface{}{"project": "shop", "requirementText": "req"},
			wantErr:   true,
		},
		{
			name:      "fractional batch size",
			variables: map[string]interface{}{"project": "shop", "module": "Login", "requirementText": "req", "batchSize": 2.5},
			wantErr:   true,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := f.handler.parseInput(createMockJob(int64(i+1), tt.variables))
			if tt.wantErr {
				assert.Equal(t, errors.ErrCodeInputValidationFailed, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			tt.check(t, in)
		})
	}
}

func TestHandler_Execute_SavesPendingBatch(t *testing.T) {
	f := setup(t, `[{"title":"Sign in","description":"As a user I sign in","acceptance_criteria":["valid creds work"]}]`)
	ctx := context.Background()

	out, err := f.handler.Execute(ctx, &Input{Project: "shop", Module: "Login", RequirementText: "req", BatchSize: 5, Iterations: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, out.PendingCount)
	assert.False(t, out.Partial)
	assert.Empty(t, out.Warning)
	assert.NotEmpty(t, out.BatchID)

	batch, err := f.pending.Load(ctx, "shop", "Login", models.BatchKindStories)
	require.NoError(t, err)
	assert.Equal(t, out.BatchID, batch.ID)
	require.Len(t, batch.Stories, 1)
	assert.Equal(t, "Login", batch.Stories[0].Module)
	assert.Equal(t, []string{"valid creds work"}, batch.Stories[0].AcceptanceCriteria)
}

func TestHandler_Execute_PromptsWithApprovedStories(t *testing.T) {
	f := setup(t, `[{"title":"Reset password"}]`)
	ctx := context.Background()

	require.NoError(t, f.projects.SaveStories(ctx, "shop", []models.Story{
		{Module: "Login", Title: "Sign in with email"},
		{Module: "Cart", Title: "Add item to cart"},
	}))

	_, err := f.handler.Execute(ctx, &Input{Project: "shop", Module: "Login", RequirementText: "req", BatchSize: 5, Iterations: 1})
	require.NoError(t, err)

	require.Len(t, f.prompts, 1)
	assert.True(t, strings.Contains(f.prompts[0], "Sign in with email"))
	assert.False(t, strings.Contains(f.prompts[0], "Add item to cart"))
}

func TestHandler_Execute_MalformedReplyCompletesWithWarning(t *testing.T) {
	f := setup(t, "Sorry, I cannot help with that.")
	ctx := context.Background()

	out, err := f.handler.Execute(ctx, &Input{Project: "shop", Module: "Login", RequirementText: "req", BatchSize: 5, Iterations: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, out.PendingCount)
	assert.Empty(t, out.BatchID)
	assert.NotEmpty(t, out.Warning)

	_, err = f.pending.Load(ctx, "shop", "Login", models.BatchKindStories)
	assert.Error(t, err)
}

func TestHandler_Execute_TruncatedReplyIsPartial(t *testing.T) {
	f := setup(t, `[{"title":"Sign in"},{"title":"Sign out"},{"title":"Reset`)

	out, err := f.handler.Execute(context.Background(), &Input{Project: "shop", Module: "Login", RequirementText: "req", BatchSize: 5, Iterations: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, out.PendingCount)
	assert.True(t, out.Partial)
	assert.NotEmpty(t, out.Warning)
}

func TestHandler_Execute_InvalidProject(t *testing.T) {
	f := setup(t)

	_, err := f.handler.Execute(context.Background(), &Input{Project: "a/b", Module: "Login", RequirementText: "req"})
	assert.Equal(t, errors.ErrCodeInputValidationFailed, errors.CodeOf(err))
}
