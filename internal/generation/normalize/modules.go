package normalize

import (
	"strings"

	"story-workers/internal/models"
)

// NormalizeModules turns decoded module-extraction output into modules.
// Names are trimmed. Items without a name are skipped and repeated names
// (case-insensitive) keep the first occurrence.
func NormalizeModules(raw any) []models.Module {
	items := asList(raw)
	out := make([]models.Module, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name := strings.TrimSpace(field(item, "module", "name", "module_name"))
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, models.Module{
			Name:     name,
			Features: list(item, "features", "feature_list"),
		})
	}
	return out
}
