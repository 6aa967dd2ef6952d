package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-workers/internal/common/config"
	"story-workers/internal/common/logger"
	"story-workers/internal/models"
	"story-workers/internal/storage/projects"
)

func TestOpenStores_Filesystem(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{
		Backend:         config.BackendFilesystem,
		ProjectsDir:     t.TempDir(),
		WorkbookEnabled: true,
	}}

	stores, err := OpenStores(context.Background(), cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	defer stores.Close()

	_, ok := stores.Approved.(*projects.Store)
	assert.True(t, ok)
	assert.NotNil(t, stores.Exporter())

	svc := NewApproval(stores, nil, logger.NewTestLogger(t))
	batch := models.NewPendingBatch("shop", "Login", models.BatchKindTestCases)
	batch.TestCases = []models.TestCase{{TestCaseTitle: "login ok", Steps: []string{"open"}}}

	out, err := svc.Approve(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, out.ExportedCount)
}

func TestOpenStores_WorkbookDisabled(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{ProjectsDir: t.TempDir()}}

	stores, err := OpenStores(context.Background(), cfg, logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.Nil(t, stores.Exporter())
}

func TestNewOrchestrator_Gateway(t *testing.T) {
	cfg := &config.Config{GenAI: config.GenAIConfig{
		Provider: config.ProviderGateway,
		BaseURL:  "http://localhost:9",
		Model:    "m",
		Timeout:  1000,
	}}

	orch, err := NewOrchestrator(context.Background(), cfg, logger.NewNoOpLogger(), nil)
	require.NoError(t, err)
	assert.NotNil(t, orch)
}
