// internal/workers/generation/generate-stories/models.go
package generatestories

type Input struct {
	Project           string `json:"project"`
	Module            string `json:"module"`
	RequirementText   string `json:"requirementText"`
	BatchSize         int    `json:"batchSize,omitempty"`
	Iterations        int    `json:"iterations,omitempty"`
	CustomInstruction string `json:"customInstruction,omitempty"`
}

type Output struct {
	BatchID      string `json:"batchId"`
	PendingCount int    `json:"pendingCount"`
	Partial      bool   `json:"partial"`
	Warning      string `json:"warning,omitempty"`
}
