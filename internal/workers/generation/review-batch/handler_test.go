package reviewbatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-workers/internal/approval"
	"story-workers/internal/common/errors"
	"story-workers/internal/common/logger"
	"story-workers/internal/common/validation"
	"story-workers/internal/models"
	"story-workers/internal/storage/pending"
	"story-workers/internal/storage/projects"
	"story-workers/internal/storage/workbook"
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
		ElementId:          "Activity_ReviewBatch",
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
	workbook *workbook.Workbook
}

func setup(t *testing.T) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	log := logger.NewTestLogger(t)
	root := t.TempDir()
	f := &fixture{
		pending:  pending.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour, log),
		projects: projects.NewStore(root, log),
		workbook: workbook.New(root, log),
	}

	validator, err := validation.NewValidator(registry.Default())
	require.NoError(t, err)

	f.handler = NewHandler(HandlerOptions{
		Config:    &Config{Enabled: true, Timeout: 5 * time.Second},
		Approval:  approval.NewService(f.projects, f.pending, f.workbook, log),
		Validator: validator,
		Logger:    log,
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
	}{
		{
			name:      "valid",
			variables: map[string]interface{}{"project": "shop", "module": "Login", "kind": "stories", "decision": "approve"},
		},
		{
			name:      "unknown kind",
			variables: map[string]interface{}{"project": "shop", "module": "Login", "kind": "epics", "decision": "approve"},
			wantErr:   true,
		},
		{
			name:      "missing decision",
			variables: map[string]interface{}{"project": "shop", "module": "Login", "kind": "stories"},
			wantErr:   true,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.handler.parseInput(createMockJob(int64(i+1), tt.variables))
			if tt.wantErr {
				assert.Equal(t, errors.ErrCodeInputValidationFailed, errors.CodeOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHandler_Execute_ApproveTestCasesExportsWorkbook(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	batch := models.NewPendingBatch("shop", "Login", models.BatchKindTestCases)
	batch.TestCases = []models.TestCase{
		{TestCaseID: "TC_001", Module: "Login", TestScenario: "login", TestCaseTitle: "login ok", Steps: []string{"open"}, ExpectedResult: "ok"},
	}
	require.NoError(t, f.pending.Save(ctx, batch))

	out, err := f.handler.Execute(ctx, &Input{Project: "shop", Module: "Login", Kind: "test_cases", Decision: "approve"})
	require.NoError(t, err)
	assert.Equal(t, "approve", out.Decision)
	assert.Equal(t, 1, out.AddedCount)
	assert.Equal(t, 1, out.TotalApproved)
	assert.Equal(t, 1, out.ExportedCount)

	rows, err := f.workbook.ReadRows("shop")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestHandler_Execute_Reject(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	batch := models.NewPendingBatch("shop", "Login", models.BatchKindStories)
	batch.Stories = []models.Story{{Module: "Login", Title: "Sign in"}}
	require.NoError(t, f.pending.Save(ctx, batch))

	out, err := f.handler.Execute(ctx, &Input{Project: "shop", Module: "Login", Kind: "stories", Decision: "reject"})
	require.NoError(t, err)
	assert.Equal(t, "reject", out.Decision)
	assert.Equal(t, 0, out.TotalApproved)

	stories, err := f.projects.LoadStories(ctx, "shop")
	require.NoError(t, err)
	assert.Empty(t, stories)
}

func TestHandler_Execute_Errors(t *testing.T) {
	f := setup(t)

	_, err := f.handler.Execute(context.Background(), &Input{Project: "shop", Module: "Login", Kind: "stories", Decision: "approve"})
	assert.Equal(t, errors.ErrCodePendingBatchNotFound, errors.CodeOf(err))

	_, err = f.handler.Execute(context.Background(), &Input{Project: "shop", Module: "Login", Kind: "stories", Decision: "later"})
	assert.Equal(t, errors.ErrCodeInvalidDecision, errors.CodeOf(err))
}
