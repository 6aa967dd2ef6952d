package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"story-workers/internal/approval"
	apperrors "story-workers/internal/common/errors"
	"story-workers/internal/generation"
	"story-workers/internal/models"
	"story-workers/internal/storage"
)

// orchestrator is the part of generation.Orchestrator the CLI drives.
type orchestrator interface {
	ExtractModules(ctx context.Context, requirementText string) generation.Result[models.Module]
	GenerateStories(ctx context.Context, req generation.StoryRequest) generation.Result[models.Story]
	GenerateTestCases(ctx context.Context, req generation.TestCaseRequest) generation.Result[models.TestCase]
}

type cli struct {
	stores          storage.ApprovedStore
	approval        *approval.Service
	newOrchestrator func() (orchestrator, error)
	in              io.Reader
	out             io.Writer
}

func (c *cli) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "modules":
		return c.modules(ctx, args)
	case "stories":
		return c.stories(ctx, args)
	case "testcases":
		return c.testCases(ctx, args)
	case "projects":
		return c.projects(ctx)
	}
	return fmt.Errorf("unknown command %q", command)
}

func (c *cli) modules(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("modules", flag.ContinueOnError)
	input := fs.String("input", "", "Path to the requirement document (plain text)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text, err := readInput(*input)
	if err != nil {
		return err
	}

	orch, err := c.newOrchestrator()
	if err != nil {
		return err
	}
	res := orch.ExtractModules(ctx, text)
	c.warn(res.Warning())

	for _, m := range res.Records {
		fmt.Fprintf(c.out, "- %s\n", m.Name)
		for _, f := range m.Features {
			fmt.Fprintf(c.out, "    * %s\n", f)
		}
	}
	fmt.Fprintf(c.out, "%d modules\n", len(res.Records))
	return nil
}

func (c *cli) stories(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stories", flag.ContinueOnError)
	project := fs.String("project", "", "Project name")
	input := fs.String("input", "", "Path to the requirement document (plain text)")
	module := fs.String("module", "", "Module to write stories for")
	batch := fs.Int("batch", 0, "Stories per round (default from config)")
	iterations := fs.Int("iterations", 0, "Generation rounds (default from config)")
	instruction := fs.String("instruction", "", "Extra instruction appended to the prompt")
	yes := fs.Bool("yes", false, "Approve without asking")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *project == "" || *module == "" {
		return apperrors.NewInputValidationFailedError("-project and -module are required")
	}
	if err := storage.ValidateName(*project); err != nil {
		return apperrors.NewInputValidationFailedError(err.Error())
	}
	text, err := readInput(*input)
	if err != nil {
		return err
	}

	existing, err := c.stores.LoadStories(ctx, *project)
	if err != nil {
		return err
	}

	orch, err := c.newOrchestrator()
	if err != nil {
		return err
	}
	res := orch.GenerateStories(ctx, generation.StoryRequest{
		Module:            *module,
		RequirementText:   text,
		BatchSize:         *batch,
		Iterations:        *iterations,
		CustomInstruction: *instruction,
		Prior:             generation.StoriesForModule(existing, *module),
	})
	c.warn(res.Warning())
	if len(res.Records) == 0 {
		fmt.Fprintln(c.out, "No stories generated.")
		return nil
	}

	pending := models.NewPendingBatch(*project, *module, models.BatchKindStories)
	pending.Stories = res.Records
	pending.Partial = res.Partial
	return c.review(ctx, pending, res.Records, *yes)
}

func (c *cli) testCases(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("testcases", flag.ContinueOnError)
	project := fs.String("project", "", "Project name")
	module := fs.String("module", "", "Module whose approved stories are used")
	instruction := fs.String("instruction", "", "Extra instruction appended to the prompt")
	yes := fs.Bool("yes", false, "Approve without asking")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *project == "" || *module == "" {
		return apperrors.NewInputValidationFailedError("-project and -module are required")
	}

	exists, err := c.stores.ProjectExists(ctx, *project)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.NewProjectNotFoundError(*project)
	}
	all, err := c.stores.LoadStories(ctx, *project)
	if err != nil {
		return err
	}
	stories := generation.StoriesForModule(all, *module)
	if len(stories) == 0 {
		return apperrors.NewNoStoriesForModuleError(*project, *module)
	}
	prior, err := c.stores.LoadTestCases(ctx, *project, *module)
	if err != nil {
		return err
	}

	orch, err := c.newOrchestrator()
	if err != nil {
		return err
	}
	res := orch.GenerateTestCases(ctx, generation.TestCaseRequest{
		Module:            *module,
		Stories:           stories,
		CustomInstruction: *instruction,
		Prior:             prior,
	})
	c.warn(res.Warning())
	if len(res.Records) == 0 {
		fmt.Fprintln(c.out, "No test cases generated.")
		return nil
	}

	pending := models.NewPendingBatch(*project, *module, models.BatchKindTestCases)
	pending.TestCases = res.Records
	pending.Partial = res.Partial
	return c.review(ctx, pending, res.Records, *yes)
}

func (c *cli) projects(ctx context.Context) error {
	names, err := c.stores.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(c.out, "No projects yet.")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(c.out, n)
	}
	return nil
}

// review prints the batch, asks for a decision and applies it.
func (c *cli) review(ctx context.Context, batch *models.PendingBatch, records interface{}, yes bool) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, string(data))
	if batch.Partial {
		fmt.Fprintln(c.out, "(response was cut off; showing the records that could be recovered)")
	}

	if !yes {
		fmt.Fprintf(c.out, "Approve %d %s for %s? [y/N] ", batch.Len(), strings.ReplaceAll(string(batch.Kind), "_", " "), batch.Module)
		answer, _ := bufio.NewReader(c.in).ReadString('\n')
		if decision, err := approval.ParseDecision(answer); err != nil || decision != approval.DecisionApprove {
			fmt.Fprintln(c.out, "Rejected.")
			return nil
		}
	}

	outcome, err := c.approval.Approve(ctx, batch)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Approved %d new (%d total).", outcome.AddedCount, outcome.TotalApproved)
	if outcome.ExportedCount > 0 {
		fmt.Fprintf(c.out, " %d rows added to the workbook.", outcome.ExportedCount)
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *cli) warn(msg string) {
	if msg != "" {
		fmt.Fprintf(c.out, "warning: %s\n", msg)
	}
}

func readInput(path string) (string, error) {
	if path == "" {
		return "", apperrors.NewInputValidationFailedError("-input is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", apperrors.NewInputValidationFailedError(path + " is empty")
	}
	return text, nil
}
