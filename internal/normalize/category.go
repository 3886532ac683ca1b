package normalize

import (
	"strings"

	"polymarket-scraper/internal/model"
)

// Uncategorized is assigned when an event carries no usable tag.
const Uncategorized = "Uncategorized"

const catchAllTag = "All"

// categoryPriority decides ties between tags. Order is significant.
var categoryPriority = []string{
	"Politics",
	"Crypto",
	"Sports",
	"Finance",
	"Science",
	"Entertainment",
	"Business",
	"Economy",
	"AI",
	"Technology",
	"Culture",
	"World",
}

// PriorityCategories returns a copy of the ordered category table.
func PriorityCategories() []string {
	out := make([]string, len(categoryPriority))
	copy(out, categoryPriority)
	return out
}

// DetermineCategory picks an event category from its tags. The first entry of
// the priority table matched by any label (case-insensitively) wins; failing
// that, the first usable label is returned verbatim.
func DetermineCategory(tags []model.Tag) string {
	labels := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Label == "" || t.Label == catchAllTag {
			continue
		}
		labels = append(labels, t.Label)
	}

	for _, priority := range categoryPriority {
		for _, label := range labels {
			if strings.EqualFold(label, priority) {
				return priority
			}
		}
	}

	if len(labels) > 0 {
		return labels[0]
	}
	return Uncategorized
}
