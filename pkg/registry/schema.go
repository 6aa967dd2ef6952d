// pkg/registry/schema.go
package registry

import (
	"fmt"
	"time"
)

// ActivityRegistry describes the task types served by the workers.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity is one BPMN service task. InputSchema is a JSON Schema applied
// to the job variables before the handler runs.
type Activity struct {
	ID                   string         `json:"id"`
	DisplayName          string         `json:"displayName"`
	Description          string         `json:"description"`
	Category             string         `json:"category"`
	Version              string         `json:"version"`
	TaskType             string         `json:"taskType"`
	ImplementationStatus string         `json:"implementationStatus"`
	InputSchema          map[string]any `json:"inputSchema"`
	OutputSchema         map[string]any `json:"outputSchema"`
	ErrorCodes           []string       `json:"errorCodes"`
	Timeout              string         `json:"timeout"`
	Retries              int            `json:"retries"`
	Workflows            []string       `json:"workflows"`
	Tags                 []string       `json:"tags"`
}

// TimeoutDuration parses Timeout. An empty value yields zero.
func (a Activity) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("activity %s has invalid timeout %q", a.ID, a.Timeout)
	}
	return d, nil
}

// DeclaresError reports whether code is listed in ErrorCodes.
func (a Activity) DeclaresError(code string) bool {
	for _, c := range a.ErrorCodes {
		if c == code {
			return true
		}
	}
	return false
}
