// internal/workers/generation/extract-modules/models.go
package extractmodules

import "story-workers/internal/models"

type Input struct {
	RequirementText string `json:"requirementText"`
}

type Output struct {
	Modules     []models.Module `json:"modules"`
	ModuleCount int             `json:"moduleCount"`
	Warning     string          `json:"warning,omitempty"`
}
