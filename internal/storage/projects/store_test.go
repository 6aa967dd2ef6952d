package projects

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-workers/internal/common/logger"
	"story-workers/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), logger.NewTestLogger(t))
}

func TestStore_StoriesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	stories := []models.Story{
		{Module: "Login", Title: "Sign in", Description: "d", AcceptanceCriteria: []string{"a", "b"}},
	}
	require.NoError(t, store.SaveStories(ctx, "shop", stories))

	loaded, err := store.LoadStories(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, stories, loaded)

	_, err = os.Stat(filepath.Join(store.Root(), "shop", "user_stories.json"))
	assert.NoError(t, err)
}

func TestStore_MissingFilesAreEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	stories, err := store.LoadStories(ctx, "new-project")
	require.NoError(t, err)
	assert.Equal(t, []models.Story{}, stories)

	cases, err := store.LoadTestCases(ctx, "new-project", "Login")
	require.NoError(t, err)
	assert.Equal(t, []models.TestCase{}, cases)
}

func TestStore_TestCasesPerModule(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	login := []models.TestCase{{TestCaseID: "TC_001", TestCaseTitle: "valid login", Steps: []string{"open"}}}
	cart := []models.TestCase{{TestCaseID: "TC_001", TestCaseTitle: "add item", Steps: []string{}}}

	require.NoError(t, store.SaveTestCases(ctx, "shop", "Login", login))
	require.NoError(t, store.SaveTestCases(ctx, "shop", "Shopping Cart", cart))

	got, err := store.LoadTestCases(ctx, "shop", "Login")
	require.NoError(t, err)
	assert.Equal(t, login, got)

	got, err = store.LoadTestCases(ctx, "shop", "Shopping Cart")
	require.NoError(t, err)
	assert.Equal(t, cart, got)

	_, err = os.Stat(filepath.Join(store.Root(), "shop", "Shopping_Cart_testcases.json"))
	assert.NoError(t, err)
}

func TestStore_ListProjects(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	require.NoError(t, store.EnsureProject(ctx, "zeta"))
	require.NoError(t, store.EnsureProject(ctx, "alpha"))
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "notes.txt"), []byte("x"), 0o644))

	projects, err = store.ListProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, projects)

	exists, err := store.ProjectExists(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.ProjectExists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_ListProjects_NoRoot(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent"), logger.NewNoOpLogger())
	projects, err := store.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestStore_RejectsUnsafeProjectNames(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, name := range []string{"", "  ", "..", "../escape", `a\b`} {
		assert.Error(t, store.EnsureProject(ctx, name), name)
		_, err := store.LoadStories(ctx, name)
		assert.Error(t, err, name)
	}
}

func TestStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.EnsureProject(ctx, "shop"))
	require.NoError(t, os.WriteFile(filepath.Join(store.ProjectDir("shop"), "user_stories.json"), []byte("{not json"), 0o644))

	_, err := store.LoadStories(ctx, "shop")
	assert.Error(t, err)
}
