// Package review turns heterogeneous per-model inspection payloads into the
// flat, filterable suggestion list the workbench displays.
package review

import (
	"fmt"

	"github.com/refixhq/refix-cli/internal/models"
)

// Normalize flattens raw per-model results into display suggestions. Each
// suggestion id is "{model}-{index}" with the index taken from the model's
// own detail list, so ids are unique within one run but never across runs.
// Results carrying only a model-level error contribute nothing here; callers
// keep the raw slice around to report those per model.
func Normalize(results []models.RawInspectionResult) []models.Suggestion {
	var suggestions []models.Suggestion
	for _, result := range results {
		if result.Review == nil {
			continue
		}
		for i, detail := range result.Review.Entries() {
			suggestions = append(suggestions, models.Suggestion{
				ID:          fmt.Sprintf("%s-%d", result.ModelName, i),
				ModelName:   result.ModelName,
				Category:    detail.Category,
				Description: detail.Text(),
				LineNumber:  detail.LineNumber,
				Suggestion:  detail.Suggestion,
			})
		}
	}
	return suggestions
}

// ModelError describes a model that produced no review.
type ModelError struct {
	ModelName string
	Message   string
}

// ModelErrors collects per-model failures so a partially failed run still
// shows which models errored alongside the surviving suggestions.
func ModelErrors(results []models.RawInspectionResult) []ModelError {
	var errs []ModelError
	for _, result := range results {
		if result.Review == nil && result.Error != "" {
			errs = append(errs, ModelError{ModelName: result.ModelName, Message: result.Error})
		}
	}
	return errs
}
