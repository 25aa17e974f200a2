package review

import (
	"strings"

	"github.com/refixhq/refix-cli/internal/models"
)

// FilterCategory is one of the fixed workbench filter buckets.
type FilterCategory string

const (
	FilterAll         FilterCategory = "All"
	FilterRepair      FilterCategory = "Repair"
	FilterPerformance FilterCategory = "Performance"
	FilterAdvance     FilterCategory = "Advance"
)

// Filters lists the buckets in display order.
var Filters = []FilterCategory{FilterAll, FilterRepair, FilterPerformance, FilterAdvance}

// categoryBuckets maps each non-All bucket to the raw category strings it
// matches. Raw categories outside every bucket are visible only under All.
var categoryBuckets = map[FilterCategory]map[string]bool{
	FilterRepair: {
		"Security": true,
		"Bug":      true,
		"Bug Risk": true,
	},
	FilterPerformance: {
		"Performance": true,
	},
	FilterAdvance: {
		"Quality":       true,
		"Readability":   true,
		"Best Practice": true,
		"Design":        true,
		"Style":         true,
	},
}

// Matches reports whether a raw category string belongs to the bucket.
func (f FilterCategory) Matches(rawCategory string) bool {
	if f == FilterAll {
		return true
	}
	return categoryBuckets[f][rawCategory]
}

// ParseFilter resolves a user-supplied bucket name, case-insensitively.
func ParseFilter(s string) (FilterCategory, bool) {
	for _, f := range Filters {
		if strings.EqualFold(string(f), s) {
			return f, true
		}
	}
	return FilterAll, false
}

// Query is the full set of inputs the visible list is derived from. The
// visible list is always a pure function of these plus the run's suggestion
// pool; nothing mutates it independently.
type Query struct {
	Model  string
	Filter FilterCategory
	Search string
}

// Visible computes the suggestion subset for a query, preserving pool order:
// model tab restriction first, then the category bucket, then a trimmed
// case-insensitive substring match against description and category.
func Visible(pool []models.Suggestion, q Query) []models.Suggestion {
	visible := make([]models.Suggestion, 0, len(pool))
	search := strings.ToLower(strings.TrimSpace(q.Search))
	filter := q.Filter
	if filter == "" {
		filter = FilterAll
	}
	for _, s := range pool {
		if q.Model != "" && s.ModelName != q.Model {
			continue
		}
		if !filter.Matches(s.Category) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(s.Description), search) &&
			!strings.Contains(strings.ToLower(s.Category), search) {
			continue
		}
		visible = append(visible, s)
	}
	return visible
}

// Count returns how many of the pool's suggestions a bucket matches, scoped
// to a model tab when one is active.
func Count(pool []models.Suggestion, model string, filter FilterCategory) int {
	n := 0
	for _, s := range pool {
		if model != "" && s.ModelName != model {
			continue
		}
		if filter.Matches(s.Category) {
			n++
		}
	}
	return n
}

// Counts computes the per-bucket counts shown next to each filter tab.
func Counts(pool []models.Suggestion, model string) map[FilterCategory]int {
	counts := make(map[FilterCategory]int, len(Filters))
	for _, f := range Filters {
		counts[f] = Count(pool, model, f)
	}
	return counts
}

// Models returns the distinct model names present in the pool, in first-seen
// order, for building the tab row.
func Models(pool []models.Suggestion) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range pool {
		if !seen[s.ModelName] {
			seen[s.ModelName] = true
			names = append(names, s.ModelName)
		}
	}
	return names
}
