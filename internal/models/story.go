// internal/models/story.go
package models

// Story is a user story: a short requirement statement with testable
// acceptance criteria. Stories carry no identifier of their own.
type Story struct {
	Module             string   `json:"module"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
}

// Module is a functional area extracted from a requirements document.
type Module struct {
	Name     string   `json:"module"`
	Features []string `json:"features"`
}
