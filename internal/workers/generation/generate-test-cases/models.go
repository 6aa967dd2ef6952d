// internal/workers/generation/generate-test-cases/models.go
package generatetestcases

type Input struct {
	Project           string `json:"project"`
	Module            string `json:"module"`
	CustomInstruction string `json:"customInstruction,omitempty"`
}

type Output struct {
	BatchID      string `json:"batchId"`
	PendingCount int    `json:"pendingCount"`
	Partial      bool   `json:"partial"`
	Warning      string `json:"warning,omitempty"`
}
