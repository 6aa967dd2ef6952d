package normalize

import (
	"strings"

	"story-workers/internal/models"
)

const (
	DefaultStoryModule = "General"
	DefaultStoryTitle  = "Untitled"
)

// NormalizeStories turns decoded model output into complete stories.
// module fills in items that name none; when it is empty the story module
// falls back to "General".
func NormalizeStories(raw any, module string) []models.Story {
	fallbackModule := strings.TrimSpace(module)
	if fallbackModule == "" {
		fallbackModule = DefaultStoryModule
	}

	items := asList(raw)
	out := make([]models.Story, 0, len(items))
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}

		story := models.Story{
			Module:             field(item, "module", "module_name"),
			Title:              field(item, "title", "story", "name"),
			Description:        field(item, "description", "desc", "user_story"),
			AcceptanceCriteria: list(item, "acceptance_criteria", "acceptanceCriteria", "criteria"),
		}
		if story.Module == "" {
			story.Module = fallbackModule
		}
		if story.Title == "" {
			story.Title = DefaultStoryTitle
		}
		out = append(out, story)
	}
	return out
}
