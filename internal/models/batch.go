// internal/models/batch.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// BatchKind distinguishes the record type held by a pending batch.
type BatchKind string

const (
	BatchKindStories   BatchKind = "stories"
	BatchKindTestCases BatchKind = "test_cases"
)

// Valid reports whether k is a known batch kind.
func (k BatchKind) Valid() bool {
	return k == BatchKindStories || k == BatchKindTestCases
}

// PendingBatch is a generated batch held until a reviewer approves or
// rejects it.
type PendingBatch struct {
	ID        string     `json:"id"`
	Project   string     `json:"project"`
	Module    string     `json:"module"`
	Kind      BatchKind  `json:"kind"`
	Stories   []Story    `json:"stories,omitempty"`
	TestCases []TestCase `json:"test_cases,omitempty"`
	Partial   bool       `json:"partial"`
	Warning   string     `json:"warning,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewPendingBatch stamps a fresh identifier and creation time.
func NewPendingBatch(project, module string, kind BatchKind) *PendingBatch {
	return &PendingBatch{
		ID:        uuid.New().String(),
		Project:   project,
		Module:    module,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}

// Len returns the number of records in the batch.
func (b *PendingBatch) Len() int {
	if b.Kind == BatchKindStories {
		return len(b.Stories)
	}
	return len(b.TestCases)
}
