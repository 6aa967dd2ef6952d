// Package approval merges reviewed batches into a project's approved
// collections.
package approval

import (
	"context"
	"errors"
	"strings"

	apperrors "story-workers/internal/common/errors"
	"story-workers/internal/common/logger"
	"story-workers/internal/common/metrics"
	"story-workers/internal/generation/dedupe"
	"story-workers/internal/models"
	"story-workers/internal/storage"
)

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// Outcome summarises a review.
type Outcome struct {
	Decision      string `json:"decision"`
	AddedCount    int    `json:"addedCount"`
	TotalApproved int    `json:"totalApproved"`
	ExportedCount int    `json:"exportedCount"`
}

type Service struct {
	approved storage.ApprovedStore
	pending  storage.PendingStore
	workbook storage.WorkbookExporter
	logger   logger.Logger
}

// NewService wires the stores. pending and workbook may be nil: without a
// pending store only Approve is usable, without a workbook nothing is
// exported.
func NewService(approved storage.ApprovedStore, pending storage.PendingStore, workbook storage.WorkbookExporter, log logger.Logger) *Service {
	return &Service{
		approved: approved,
		pending:  pending,
		workbook: workbook,
		logger:   log.With(map[string]interface{}{"component": "approval"}),
	}
}

// ParseDecision accepts approve/reject and the y/n answers of the CLI.
func ParseDecision(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approve", "approved", "y", "yes":
		return DecisionApprove, nil
	case "reject", "rejected", "n", "no":
		return DecisionReject, nil
	}
	return "", apperrors.NewInvalidDecisionError(raw)
}

// Review applies a decision to the pending batch of (project, module, kind)
// and removes the batch afterwards.
func (s *Service) Review(ctx context.Context, project, module string, kind models.BatchKind, decision string) (*Outcome, error) {
	decision, err := ParseDecision(decision)
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, apperrors.NewInputValidationFailedError("kind must be stories or test_cases")
	}
	if s.pending == nil {
		return nil, apperrors.NewStorageFailedError("load pending batch", errors.New("no pending store configured"))
	}

	batch, err := s.pending.Load(ctx, project, module, kind)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NewPendingBatchNotFoundError(err.Error()).
			WithMetadata("project", project).
			WithMetadata("module", module)
	}
	if err != nil {
		return nil, apperrors.NewStorageFailedError("load pending batch", err)
	}

	var outcome *Outcome
	if decision == DecisionApprove {
		outcome, err = s.Approve(ctx, batch)
		if err != nil {
			return nil, err
		}
	} else {
		outcome, err = s.reject(ctx, batch)
		if err != nil {
			return nil, err
		}
	}

	if err := s.pending.Delete(ctx, project, module, kind); err != nil {
		return nil, apperrors.NewStorageFailedError("delete pending batch", err)
	}
	return outcome, nil
}

// Approve merges the batch into the approved collection. Records already
// approved are not added twice; approved test cases of the module are
// renumbered from TC_001.
func (s *Service) Approve(ctx context.Context, batch *models.PendingBatch) (*Outcome, error) {
	if err := storage.ValidateName(batch.Project); err != nil {
		return nil, apperrors.NewInputValidationFailedError(err.Error())
	}
	if err := s.approved.EnsureProject(ctx, batch.Project); err != nil {
		return nil, apperrors.NewStorageFailedError("create project", err)
	}

	switch batch.Kind {
	case models.BatchKindStories:
		return s.approveStories(ctx, batch)
	case models.BatchKindTestCases:
		return s.approveTestCases(ctx, batch)
	}
	return nil, apperrors.NewInputValidationFailedError("unknown batch kind: " + string(batch.Kind))
}

func (s *Service) approveStories(ctx context.Context, batch *models.PendingBatch) (*Outcome, error) {
	existing, err := s.approved.LoadStories(ctx, batch.Project)
	if err != nil {
		return nil, apperrors.NewStorageFailedError("load stories", err)
	}
	existing, _ = dedupe.Stories(existing)

	merged, dropped := dedupe.Stories(append(existing, batch.Stories...))
	added := len(merged) - len(existing)

	if added > 0 {
		if err := s.approved.SaveStories(ctx, batch.Project, merged); err != nil {
			return nil, apperrors.NewStorageFailedError("save stories", err)
		}
	}

	s.record(metrics.KindStories, added, dropped)
	s.logger.Info("stories approved", map[string]interface{}{
		"project": batch.Project,
		"module":  batch.Module,
		"batchId": batch.ID,
		"added":   added,
		"dropped": dropped,
		"total":   len(merged),
	})
	return &Outcome{Decision: DecisionApprove, AddedCount: added, TotalApproved: len(merged)}, nil
}

func (s *Service) approveTestCases(ctx context.Context, batch *models.PendingBatch) (*Outcome, error) {
	existing, err := s.approved.LoadTestCases(ctx, batch.Project, batch.Module)
	if err != nil {
		return nil, apperrors.NewStorageFailedError("load test cases", err)
	}
	existing, _ = dedupe.TestCases(existing)

	merged, dropped := dedupe.TestCases(append(existing, batch.TestCases...))
	added := len(merged) - len(existing)

	if added > 0 {
		if err := s.approved.SaveTestCases(ctx, batch.Project, batch.Module, merged); err != nil {
			return nil, apperrors.NewStorageFailedError("save test cases", err)
		}
	}
	s.record(metrics.KindTestCases, added, dropped)

	outcome := &Outcome{Decision: DecisionApprove, AddedCount: added, TotalApproved: len(merged)}

	// The whole batch is exported, not just what was added, so a retry after
	// a failed export still writes the rows. The workbook skips duplicates.
	if s.workbook != nil {
		exported, err := s.workbook.AppendTestCases(batch.Project, batchRecords(merged, batch.TestCases))
		if err != nil {
			return nil, apperrors.NewExportFailedError(batch.Project, err)
		}
		outcome.ExportedCount = exported
	}

	s.logger.Info("test cases approved", map[string]interface{}{
		"project":  batch.Project,
		"module":   batch.Module,
		"batchId":  batch.ID,
		"added":    added,
		"dropped":  dropped,
		"exported": outcome.ExportedCount,
		"total":    len(merged),
	})
	return outcome, nil
}

// batchRecords returns the merged records that belong to the batch, with
// their approved identifiers.
func batchRecords(merged, batch []models.TestCase) []models.TestCase {
	keys := make(map[string]struct{}, len(batch))
	for _, tc := range batch {
		keys[dedupe.TestCaseKey(tc)] = struct{}{}
	}
	out := make([]models.TestCase, 0, len(batch))
	for _, tc := range merged {
		if _, ok := keys[dedupe.TestCaseKey(tc)]; ok {
			out = append(out, tc)
		}
	}
	return out
}

func (s *Service) reject(ctx context.Context, batch *models.PendingBatch) (*Outcome, error) {
	total := 0
	switch batch.Kind {
	case models.BatchKindStories:
		existing, err := s.approved.LoadStories(ctx, batch.Project)
		if err != nil {
			return nil, apperrors.NewStorageFailedError("load stories", err)
		}
		total = len(existing)
	case models.BatchKindTestCases:
		existing, err := s.approved.LoadTestCases(ctx, batch.Project, batch.Module)
		if err != nil {
			return nil, apperrors.NewStorageFailedError("load test cases", err)
		}
		total = len(existing)
	}

	s.logger.Info("batch rejected", map[string]interface{}{
		"project":   batch.Project,
		"module":    batch.Module,
		"kind":      string(batch.Kind),
		"batchId":   batch.ID,
		"discarded": batch.Len(),
	})
	return &Outcome{Decision: DecisionReject, TotalApproved: total}, nil
}

func (s *Service) record(kind string, added, dropped int) {
	metrics.ApprovedRecords.WithLabelValues(kind).Add(float64(added))
	if dropped > 0 {
		metrics.DedupeDropped.WithLabelValues(kind).Add(float64(dropped))
	}
}
