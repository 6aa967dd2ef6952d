// Package generation drives the generation service: it composes prompts,
// sends them one at a time, and turns the replies into normalized records.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "story-workers/internal/common/errors"
	"story-workers/internal/common/genai"
	"story-workers/internal/common/logger"
	"story-workers/internal/common/metrics"
	"story-workers/internal/common/observability"
	"story-workers/internal/generation/jsonextract"
	"story-workers/internal/generation/normalize"
	"story-workers/internal/models"
)

// Result is the outcome of one generation call. Records holds everything
// accumulated, Partial is set when the last round was recovered from a
// truncated response, and Err carries the detail of any absorbed failure.
type Result[T any] struct {
	Records []T
	Partial bool
	Err     error
}

// Warning renders Err for display, or "" when there is none.
func (r Result[T]) Warning() string {
	if r.Err == nil {
		return ""
	}
	if stdErr, ok := apperrors.AsStandardError(r.Err); ok {
		if stdErr.Details != "" {
			return fmt.Sprintf("%s: %s", stdErr.Message, stdErr.Details)
		}
		return stdErr.Message
	}
	return r.Err.Error()
}

// Settings are the orchestrator's loop bounds.
type Settings struct {
	StoryBatchSize     int
	StoryIterations    int
	TestCaseIterations int
}

// Orchestrator issues generation rounds against a single Generator.
type Orchestrator struct {
	gen      genai.Generator
	prompts  *PromptSet
	settings Settings
	logger   logger.Logger
	obs      *observability.Observability
}

// NewOrchestrator wires a generator and prompt set. obs may be nil.
func NewOrchestrator(gen genai.Generator, prompts *PromptSet, settings Settings, log logger.Logger, obs *observability.Observability) *Orchestrator {
	if settings.StoryBatchSize < 1 {
		settings.StoryBatchSize = 10
	}
	if settings.StoryIterations < 1 {
		settings.StoryIterations = 1
	}
	if settings.TestCaseIterations < 1 {
		settings.TestCaseIterations = 1
	}
	if prompts == nil {
		prompts = MustDefaultPrompts()
	}
	return &Orchestrator{
		gen:      gen,
		prompts:  prompts,
		settings: settings,
		logger:   log.With(map[string]interface{}{"component": "orchestrator"}),
		obs:      obs,
	}
}

// ==========================
// Requests
// ==========================

// StoryRequest asks for user stories for one module.
type StoryRequest struct {
	Module            string
	RequirementText   string
	BatchSize         int // stories per round; 0 uses the configured default
	Iterations        int // rounds; 0 uses the configured default
	CustomInstruction string
	// Prior lists stories the service should not repeat. They are shown in
	// the prompt but not returned.
	Prior []models.Story
}

// TestCaseRequest asks for test cases for one module. Stories may hold the
// whole approved collection; only stories of Module are used.
type TestCaseRequest struct {
	Module            string
	Stories           []models.Story
	CustomInstruction string
	Prior             []models.TestCase
}

// ==========================
// Operations
// ==========================

// ExtractModules asks the service for the modules of a requirement document.
func (o *Orchestrator) ExtractModules(ctx context.Context, requirementText string) Result[models.Module] {
	prompt := func([]models.Module) (string, error) {
		return render(o.prompts.modules, modulesPrompt{RequirementText: requirementText})
	}
	norm := func(raw any, _ int) []models.Module {
		return normalize.NormalizeModules(raw)
	}
	return runRounds(ctx, o, metrics.KindModules, 1, prompt, norm)
}

// GenerateStories runs the story loop for one module.
func (o *Orchestrator) GenerateStories(ctx context.Context, req StoryRequest) Result[models.Story] {
	batchSize := req.BatchSize
	if batchSize < 1 {
		batchSize = o.settings.StoryBatchSize
	}
	iterations := req.Iterations
	if iterations < 1 {
		iterations = o.settings.StoryIterations
	}

	prompt := func(acc []models.Story) (string, error) {
		prior := make([]models.Story, 0, len(req.Prior)+len(acc))
		prior = append(prior, req.Prior...)
		prior = append(prior, acc...)
		return render(o.prompts.stories, storiesPrompt{
			Module:            req.Module,
			BatchSize:         batchSize,
			RequirementText:   req.RequirementText,
			CustomInstruction: strings.TrimSpace(req.CustomInstruction),
			Prior:             prior,
		})
	}
	norm := func(raw any, _ int) []models.Story {
		return normalize.NormalizeStories(raw, req.Module)
	}
	return runRounds(ctx, o, metrics.KindStories, iterations, prompt, norm)
}

// GenerateTestCases runs the test case loop for one module. Identifiers
// continue from the number of cases produced earlier in the same call.
func (o *Orchestrator) GenerateTestCases(ctx context.Context, req TestCaseRequest) Result[models.TestCase] {
	stories := StoriesForModule(req.Stories, req.Module)

	prompt := func(acc []models.TestCase) (string, error) {
		prior := make([]models.TestCase, 0, len(req.Prior)+len(acc))
		prior = append(prior, req.Prior...)
		prior = append(prior, acc...)
		return render(o.prompts.testCases, testCasesPrompt{
			Module:            req.Module,
			Stories:           stories,
			CustomInstruction: strings.TrimSpace(req.CustomInstruction),
			Prior:             prior,
		})
	}
	norm := func(raw any, start int) []models.TestCase {
		return normalize.NormalizeTestCases(raw, req.Module, start)
	}
	return runRounds(ctx, o, metrics.KindTestCases, o.settings.TestCaseIterations, prompt, norm)
}

// StoriesForModule filters stories by module name, ignoring case and
// surrounding space.
func StoriesForModule(stories []models.Story, module string) []models.Story {
	want := strings.ToLower(strings.TrimSpace(module))
	out := make([]models.Story, 0, len(stories))
	for _, s := range stories {
		if strings.ToLower(strings.TrimSpace(s.Module)) == want {
			out = append(out, s)
		}
	}
	return out
}

// ==========================
// Round loop
// ==========================

func runRounds[T any](
	ctx context.Context,
	o *Orchestrator,
	kind string,
	iterations int,
	buildPrompt func(acc []T) (string, error),
	norm func(raw any, start int) []T,
) Result[T] {
	res := Result[T]{Records: make([]T, 0)}
	log := o.logger.With(map[string]interface{}{"kind": kind})

	for i := 1; i <= iterations; i++ {
		if err := ctx.Err(); err != nil {
			res.Err = apperrors.NewServiceTimeoutError(err)
			o.fail(ctx, log, kind, i, res.Err)
			return res
		}

		prompt, err := buildPrompt(res.Records)
		if err != nil {
			res.Err = apperrors.NewServiceInvocationFailedError(err)
			o.fail(ctx, log, kind, i, res.Err)
			return res
		}

		text, err := o.gen.Generate(ctx, prompt)
		if err != nil {
			if errors.Is(err, genai.ErrGenerationTimeout) || errors.Is(err, context.DeadlineExceeded) {
				res.Err = apperrors.NewServiceTimeoutError(err)
			} else {
				res.Err = apperrors.NewServiceInvocationFailedError(err)
			}
			o.fail(ctx, log, kind, i, res.Err)
			return res
		}

		start := len(res.Records) + 1
		value, objects := jsonextract.Parse(text)

		if items := fullList(value); len(items) > 0 {
			if records := norm(items, start); len(records) > 0 {
				res.Records = append(res.Records, records...)
				o.accept(ctx, log, kind, i, len(records), false)
				continue
			}
		}

		if len(objects) > 0 {
			raw := make([]any, len(objects))
			for j, obj := range objects {
				raw[j] = obj
			}
			if records := norm(raw, start); len(records) > 0 {
				res.Records = append(res.Records, records...)
				res.Partial = true
				res.Err = apperrors.NewMalformedResponseError(
					fmt.Sprintf("response was incomplete; recovered %d records", len(records)))
				o.accept(ctx, log, kind, i, len(records), true)
				return res
			}
		}

		res.Err = apperrors.NewMalformedResponseError(fmt.Sprintf("no usable records in %d characters of output", len(text)))
		o.fail(ctx, log, kind, i, res.Err)
		return res
	}
	return res
}

// fullList returns the record list carried by a fully decoded value: the
// value itself when it is a list, or the single list of objects inside a
// wrapper object. A bare object is not a full list; it is what remains of
// a truncated array and goes through object recovery.
func fullList(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case map[string]any:
		var found []any
		for _, field := range v {
			list, ok := field.([]any)
			if !ok || len(list) == 0 {
				continue
			}
			if _, isObj := list[0].(map[string]any); !isObj {
				continue
			}
			if found != nil {
				return nil
			}
			found = list
		}
		return found
	default:
		return nil
	}
}

func (o *Orchestrator) accept(ctx context.Context, log logger.Logger, kind string, iteration, count int, partial bool) {
	metrics.GenerationRecords.WithLabelValues(kind).Add(float64(count))
	outcome := "full"
	if partial {
		outcome = "partial"
		metrics.GenerationPartialBatches.WithLabelValues(kind).Inc()
		log.Warn("generation response truncated, kept recovered records", map[string]interface{}{
			"iteration": iteration,
			"records":   count,
		})
	} else {
		log.Info("generation round completed", map[string]interface{}{
			"iteration": iteration,
			"records":   count,
		})
	}
	o.obs.RecordGenerationRound(ctx, kind, outcome)
}

func (o *Orchestrator) fail(ctx context.Context, log logger.Logger, kind string, iteration int, err error) {
	code := apperrors.CodeOf(err)
	metrics.GenerationFailures.WithLabelValues(kind, string(code)).Inc()
	o.obs.RecordGenerationRound(ctx, kind, "failed")
	log.Warn("generation round produced no records", map[string]interface{}{
		"iteration": iteration,
		"errorCode": string(code),
		"error":     err.Error(),
	})
}
