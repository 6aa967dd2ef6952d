package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-workers/internal/approval"
	apperrors "story-workers/internal/common/errors"
	"story-workers/internal/common/genai"
	"story-workers/internal/common/logger"
	"story-workers/internal/generation"
	"story-workers/internal/models"
	"story-workers/internal/storage/projects"
	"story-workers/internal/storage/workbook"
)

type harness struct {
	cli   *cli
	store *projects.Store
	out   *bytes.Buffer
	dir   string
}

func newHarness(t *testing.T, stdin string, replies ...string) *harness {
	t.Helper()
	log := logger.NewTestLogger(t)
	dir := t.TempDir()
	store := projects.NewStore(dir, log)

	calls := 0
	gen := genai.GeneratorFunc(func(context.Context, string) (string, error) {
		calls++
		if calls > len(replies) {
			return "[]", nil
		}
		return replies[calls-1], nil
	})

	out := &bytes.Buffer{}
	return &harness{
		cli: &cli{
			stores:   store,
			approval: approval.NewService(store, nil, workbook.New(dir, log), log),
			in:       strings.NewReader(stdin),
			out:      out,
			newOrchestrator: func() (orchestrator, error) {
				return generation.NewOrchestrator(gen, nil, generation.Settings{}, log, nil), nil
			},
		},
		store: store,
		out:   out,
		dir:   dir,
	}
}

func writeRequirement(t *testing.T, h *harness, text string) string {
	t.Helper()
	path := filepath.Join(h.dir, "req.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestModulesCommand(t *testing.T) {
	h := newHarness(t, "", `[{"module":"Login","features":["sign in"]},{"module":"Cart"}]`)
	input := writeRequirement(t, h, "A shop.")

	require.NoError(t, h.cli.run(context.Background(), "modules", []string{"-input", input}))
	assert.Contains(t, h.out.String(), "- Login\n    * sign in\n- Cart\n2 modules")
}

func TestStoriesCommand_ApproveFromPrompt(t *testing.T) {
	h := newHarness(t, "y\n", `[{"title":"Sign in","description":"d"}]`)
	input := writeRequirement(t, h, "Users sign in.")
	ctx := context.Background()

	err := h.cli.run(ctx, "stories", []string{"-project", "shop", "-input", input, "-module", "Login"})
	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "Approve 1 stories for Login?")
	assert.Contains(t, h.out.String(), "Approved 1 new (1 total).")

	stories, err := h.store.LoadStories(ctx, "shop")
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "Login", stories[0].Module)
}

func TestStoriesCommand_RejectByDefault(t *testing.T) {
	h := newHarness(t, "\n", `[{"title":"Sign in"}]`)
	input := writeRequirement(t, h, "Users sign in.")
	ctx := context.Background()

	require.NoError(t, h.cli.run(ctx, "stories", []string{"-project", "shop", "-input", input, "-module", "Login"}))
	assert.Contains(t, h.out.String(), "Rejected.")

	stories, err := h.store.LoadStories(ctx, "shop")
	require.NoError(t, err)
	assert.Empty(t, stories)
}

func TestTestCasesCommand(t *testing.T) {
	h := newHarness(t, "", `[{"testcase_title":"login ok","steps":["open","submit"],"expected_result":"dashboard"}]`)
	ctx := context.Background()
	require.NoError(t, h.store.SaveStories(ctx, "shop", []models.Story{{Module: "Login", Title: "Sign in"}}))

	require.NoError(t, h.cli.run(ctx, "testcases", []string{"-project", "shop", "-module", "Login", "-yes"}))
	assert.Contains(t, h.out.String(), "1 rows added to the workbook.")

	cases, err := h.store.LoadTestCases(ctx, "shop", "Login")
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "TC_001", cases[0].TestCaseID)
}

func TestTestCasesCommand_LookupErrors(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	err := h.cli.run(ctx, "testcases", []string{"-project", "nope", "-module", "Login"})
	assert.Equal(t, apperrors.ErrCodeProjectNotFound, apperrors.CodeOf(err))

	require.NoError(t, h.store.SaveStories(ctx, "shop", []models.Story{{Module: "Cart", Title: "Add"}}))
	err = h.cli.run(ctx, "testcases", []string{"-project", "shop", "-module", "Login"})
	assert.Equal(t, apperrors.ErrCodeNoStoriesForModule, apperrors.CodeOf(err))
}

func TestProjectsCommand(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	require.NoError(t, h.cli.run(ctx, "projects", nil))
	assert.Contains(t, h.out.String(), "No projects yet.")

	require.NoError(t, h.store.EnsureProject(ctx, "shop"))
	h.out.Reset()
	require.NoError(t, h.cli.run(ctx, "projects", nil))
	assert.Equal(t, "shop\n", h.out.String())
}

func TestRun_Errors(t *testing.T) {
	h := newHarness(t, "")

	assert.Error(t, h.cli.run(context.Background(), "deploy", nil))

	err := h.cli.run(context.Background(), "stories", []string{"-project", "shop"})
	assert.Equal(t, apperrors.ErrCodeInputValidationFailed, apperrors.CodeOf(err))
}
