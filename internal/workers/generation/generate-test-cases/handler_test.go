package generatetestcases

import (
	"context"
	"encoding/json"
	"fmt"
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
		ElementId:          "Activity_GenerateTestCases",
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

func setup(t *testing.T, gen genai.Generator) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	log := logger.NewTestLogger(t)
	f := &fixture{
		pending:  pending.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour, log),
		projects: projects.NewStore(t.TempDir(), log),
	}
	recording := genai.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		f.prompts = append(f.prompts, prompt)
		return gen.Generate(ctx, prompt)
	})

	validator, err := validation.NewValidator(registry.Default())
	require.NoError(t, err)

	f.handler = NewHandler(HandlerOptions{
		Config:       &Config{Enabled: true, Timeout: 5 * time.Second},
		Orchestrator: generation.NewOrchestrator(recording, nil, generation.Settings{}, log, nil),
		Approved:     f.projects,
		Pending:      f.pending,
		Validator:    validator,
		Logger:       log,
	})
	return f
}

func reply(text string) genai.Generator {
	return genai.GeneratorFunc(func(context.Context, string) (string, error) {
		return text, nil
	})
}

func seedStories(t *testing.T, f *fixture) {
	t.Helper()
	require.NoError(t, f.projects.SaveStories(context.Background(), "shop", []models.Story{
		{Module: "Login", Title: "Sign in", AcceptanceCriteria: []string{"valid creds reach dashboard"}},
		{Module: "Cart", Title: "Add item"},
	}))
}

// ==========================
// Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	f := setup(t, reply("[]"))

	in, err := f.handler.parseInput(createMockJob(1, map[string]interface{}{"project": "shop", "module": "Login"}))
	require.NoError(t, err)
	assert.Equal(t, "Login", in.Module)

	_, err = f.handler.parseInput(createMockJob(2, map[string]interface{}{"module": "Login"}))
	assert.Equal(t, errors.ErrCodeInputValidationFailed, errors.CodeOf(err))
}

func TestHandler_Execute_UsesModuleStories(t *testing.T) {
	f := setup(t, reply(`[{"testcase_title":"login ok","steps":["open","submit"],"expected_result":"dashboard"},
		{"testcase_title":"bad password","steps":"open; submit wrong","expected_result":"error"}]`))
	seedStories(t, f)
	ctx := context.Background()

	out, err := f.handler.Execute(ctx, &Input{Project: "shop", Module: "login"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.PendingCount)
	assert.NotEmpty(t, out.BatchID)

	require.Len(t, f.prompts, 1)
	assert.True(t, strings.Contains(f.prompts[0], "valid creds reach dashboard"))
	assert.False(t, strings.Contains(f.prompts[0], "Add item"))

	batch, err := f.pending.Load(ctx, "shop", "login", models.BatchKindTestCases)
	require.NoError(t, err)
	require.Len(t, batch.TestCases, 2)
	assert.Equal(t, "TC_001", batch.TestCases[0].TestCaseID)
	assert.Equal(t, "TC_002", batch.TestCases[1].TestCaseID)
	assert.Equal(t, []string{"open", "submit wrong"}, batch.TestCases[1].Steps)
}

func TestHandler_Execute_LookupErrors(t *testing.T) {
	f := setup(t, reply("[]"))

	_, err := f.handler.Execute(context.Background(), &Input{Project: "missing", Module: "Login"})
	assert.Equal(t, errors.ErrCodeProjectNotFound, errors.CodeOf(err))

	seedStories(t, f)
	_, err = f.handler.Execute(context.Background(), &Input{Project: "shop", Module: "Payments"})
	assert.Equal(t, errors.ErrCodeNoStoriesForModule, errors.CodeOf(err))
	assert.Empty(t, f.prompts)
}

func TestHandler_Execute_ServiceFailureCompletesWithWarning(t *testing.T) {
	f := setup(t, genai.GeneratorFunc(func(context.Context, string) (string, error) {
		return "", fmt.Errorf("%w: status 503", genai.ErrGenerationFailed)
	}))
	seedStories(t, f)

	out, err := f.handler.Execute(context.Background(), &Input{Project: "shop", Module: "Login"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.PendingCount)
	assert.Empty(t, out.BatchID)
	assert.NotEmpty(t, out.Warning)
}
