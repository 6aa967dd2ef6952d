// Package dedupe removes semantic duplicates from generated collections and
// renumbers test case identifiers.
package dedupe

import (
	"strings"

	"story-workers/internal/generation/normalize"
	"story-workers/internal/models"
)

// unit separator keeps joined fields from colliding
const sep = "\x1f"

// TestCaseKey is the duplicate key for a test case: scenario identifier,
// title, expected result and the ordered steps. The identifier is not part
// of it.
func TestCaseKey(tc models.TestCase) string {
	var b strings.Builder
	b.WriteString(tc.ScenarioID)
	b.WriteString(sep)
	b.WriteString(tc.TestCaseTitle)
	b.WriteString(sep)
	b.WriteString(tc.ExpectedResult)
	for _, s := range tc.Steps {
		b.WriteString(sep)
		b.WriteString(s)
	}
	return b.String()
}

// StoryKey is the duplicate key for a story: module, title, description and
// criteria, compared ignoring case and surrounding space.
func StoryKey(s models.Story) string {
	parts := append([]string{s.Module, s.Title, s.Description}, s.AcceptanceCriteria...)
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, sep)
}

// TestCases drops later duplicates, keeping first occurrences in order, and
// reassigns identifiers TC_001, TC_002, ... in output order. The input is
// not modified. It also returns how many records were dropped.
func TestCases(records []models.TestCase) ([]models.TestCase, int) {
	seen := make(map[string]struct{}, len(records))
	out := make([]models.TestCase, 0, len(records))

	for _, rec := range records {
		key := TestCaseKey(rec)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		tc := rec.Clone()
		tc.TestCaseID = normalize.TestCaseID(len(out) + 1)
		out = append(out, tc)
	}
	return out, len(records) - len(out)
}

// DedupeAndRenumber is TestCases without the dropped count.
func DedupeAndRenumber(records []models.TestCase) []models.TestCase {
	out, _ := TestCases(records)
	return out
}

// Stories drops later duplicate stories, keeping first occurrences in order.
func Stories(records []models.Story) ([]models.Story, int) {
	seen := make(map[string]struct{}, len(records))
	out := make([]models.Story, 0, len(records))

	for _, rec := range records {
		key := StoryKey(rec)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		s := rec
		s.AcceptanceCriteria = append([]string(nil), rec.AcceptanceCriteria...)
		out = append(out, s)
	}
	return out, len(records) - len(out)
}
