// internal/workers/generation/extract-modules/handler.go
package extractmodules

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
)

const TaskType = "extract-modules"

type Handler struct {
	config       *Config
	orchestrator *generation.Orchestrator
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

type HandlerOptions struct {
	Config       *Config
	Orchestrator *generation.Orchestrator
	Validator    *validation.Validator // optional
	Obs          *observability.Observability
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	log := opts.Logger.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       opts.Config,
		orchestrator: opts.Orchestrator,
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

// Execute never fails on a misbehaving model: an unusable reply yields an
// empty module list and a warning.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res := h.orchestrator.ExtractModules(ctx, input.RequirementText)

	modules := res.Records
	if modules == nil {
		modules = []models.Module{}
	}

	h.logger.Info("modules extracted", map[string]interface{}{
		"moduleCount": len(modules),
		"partial":     res.Partial,
	})
	return &Output{
		Modules:     modules,
		ModuleCount: len(modules),
		Warning:     res.Warning(),
	}, nil
}
