// internal/workers/generation/review-batch/models.go
package reviewbatch

type Input struct {
	Project  string `json:"project"`
	Module   string `json:"module"`
	Kind     string `json:"kind"`
	Decision string `json:"decision"`
}

type Output struct {
	Decision      string `json:"decision"`
	AddedCount    int    `json:"addedCount"`
	TotalApproved int    `json:"totalApproved"`
	ExportedCount int    `json:"exportedCount"`
}
