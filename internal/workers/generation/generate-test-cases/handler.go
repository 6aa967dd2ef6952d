// internal/workers/generation/generate-test-cases/handler.go
package generatetestcases

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"story-workers/internal/common/camunda"
	"story-workers/internal/common/errors"
	"story-workers/internal/common/logger"
	"story-workers/internal/common/metrics"
	"story-workers/internal/common/observability"
	"story-workers/internal/common/validation"
	"story-workers/internal/generation"
	"story-workers/internal/models"
	"story-workers/internal/storage"
)

const TaskType = "generate-test-cases"

type Handler struct {
	config       *Config
	orchestrator *generation.Orchestrator
	approved     storage.ApprovedStore
	pending      storage.PendingStore
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

type HandlerOptions struct {
	Config       *Config
	Orchestrator *generation.Orchestrator
	Approved     storage.ApprovedStore
	Pending      storage.PendingStore
	Validator    *validation.Validator
	Obs          *observability.Observability
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	log := opts.Logger.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       opts.Config,
		orchestrator: opts.Orchestrator,
		approved:     opts.Approved,
		pending:      opts.Pending,
		validator:    opts.Validator,
		errorHandler: errors.NewErrorHandler(log),
		obs:          opts.Obs,
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	camunda.CompleteJob(client, job, output, h.logger)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")

	sendCtx, cancel := camunda.SendContext()
	defer cancel()
	h.errorHandler.HandleJobError(sendCtx, client, job, err)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	if h.validator != nil {
		vars, err := camunda.VariablesMap(job)
		if err != nil {
			return nil, err
		}
		result, err := h.validator.Validate(TaskType, vars)
		if err != nil {
			return nil, errors.NewInputValidationFailedError(err.Error())
		}
		if !result.Valid {
			return nil, errors.NewInputValidationFailedError(result.Summary())
		}
	}

	var input Input
	if err := camunda.DecodeVariables(job, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

// Execute generates test cases from the approved stories of one module and
// holds them as the module's pending batch. The project must exist and
// have at least one approved story for the module.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	stories, prior, err := h.loadApproved(ctx, input)
	if err != nil {
		return nil, err
	}

	res := h.orchestrator.GenerateTestCases(ctx, generation.TestCaseRequest{
		Module:            input.Module,
		Stories:           stories,
		CustomInstruction: input.CustomInstruction,
		Prior:             prior,
	})

	output := &Output{
		PendingCount: len(res.Records),
		Partial:      res.Partial,
		Warning:      res.Warning(),
	}
	if len(res.Records) == 0 {
		h.logger.Warn("no test cases generated", map[string]interface{}{
			"project": input.Project,
			"module":  input.Module,
			"warning": output.Warning,
		})
		return output, nil
	}

	batch := models.NewPendingBatch(input.Project, input.Module, models.BatchKindTestCases)
	batch.TestCases = res.Records
	batch.Partial = res.Partial
	batch.Warning = output.Warning

	saveCtx, cancel := camunda.SendContext()
	defer cancel()
	if err := h.pending.Save(saveCtx, batch); err != nil {
		return nil, errors.NewStorageFailedError("save pending test cases", err)
	}

	output.BatchID = batch.ID
	h.logger.Info("test cases pending review", map[string]interface{}{
		"project":      input.Project,
		"module":       input.Module,
		"batchId":      batch.ID,
		"pendingCount": output.PendingCount,
		"partial":      output.Partial,
	})
	return output, nil
}

func (h *Handler) loadApproved(ctx context.Context, input *Input) ([]models.Story, []models.TestCase, error) {
	if err := storage.ValidateName(input.Project); err != nil {
		return nil, nil, errors.NewInputValidationFailedError(err.Error())
	}

	exists, err := h.approved.ProjectExists(ctx, input.Project)
	if err != nil {
		return nil, nil, errors.NewStorageFailedError("check project", err)
	}
	if !exists {
		return nil, nil, errors.NewProjectNotFoundError(input.Project)
	}

	all, err := h.approved.LoadStories(ctx, input.Project)
	if err != nil {
		return nil, nil, errors.NewStorageFailedError("load approved stories", err)
	}
	stories := generation.StoriesForModule(all, input.Module)
	if len(stories) == 0 {
		return nil, nil, errors.NewNoStoriesForModuleError(input.Project, input.Module)
	}

	prior, err := h.approved.LoadTestCases(ctx, input.Project, input.Module)
	if err != nil {
		return nil, nil, errors.NewStorageFailedError("load approved test cases", err)
	}
	return stories, prior, nil
}
