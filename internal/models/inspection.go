package models

// RawInspectionResult is one AI model's outcome for a single inspection run.
// Exactly one of Review/Error is meaningful; both may be absent when the model
// returned nothing at all.
type RawInspectionResult struct {
	ModelName string         `json:"model_name"`
	Review    *ReviewPayload `json:"review,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ReviewPayload is a single model's structured review. Older backend versions
// emitted the detail list under "panels"; both fields must be accepted.
type ReviewPayload struct {
	OverallScore *float64       `json:"overall_score,omitempty"`
	Summary      string         `json:"summary,omitempty"`
	Details      []ReviewDetail `json:"details,omitempty"`
	Panels       []ReviewDetail `json:"panels,omitempty"`
}

// Entries returns the detail list, preferring the canonical field over the
// legacy one when both are present. Presence is what matters: a review that
// explicitly sent an empty "details" array has zero findings, and the legacy
// field must not resurrect any.
func (p *ReviewPayload) Entries() []ReviewDetail {
	if p.Details != nil {
		return p.Details
	}
	return p.Panels
}

// ReviewDetail is one finding inside a review. The long-form description
// historically arrived under "details"; when both fields are set the legacy
// one wins.
type ReviewDetail struct {
	Category    string `json:"category"`
	LineNumber  int    `json:"line_number"`
	Description string `json:"description"`
	DetailsText string `json:"details,omitempty"`
	Suggestion  string `json:"suggestion"`
	FileName    string `json:"file_name,omitempty"`
	ModelName   string `json:"model_name,omitempty"`
}

// Text returns the canonical description for a detail.
func (d ReviewDetail) Text() string {
	if d.DetailsText != "" {
		return d.DetailsText
	}
	return d.Description
}

// Suggestion is the normalized, display-facing unit of one review finding.
// Ids are stable only within a single inspection run.
type Suggestion struct {
	ID          string `json:"id"`
	ModelName   string `json:"model_name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	LineNumber  int    `json:"line_number"`
	Suggestion  string `json:"suggestion"`
}

// ConsolidatedIssue is a server-computed merge of multiple models' findings
// on the same line.
type ConsolidatedIssue struct {
	IssueID          string         `json:"issue_id"`
	LineNumber       int            `json:"line_number"`
	Category         string         `json:"category"`
	Title            string         `json:"title"`
	ParticipatingAIs []string       `json:"participating_ais"`
	Suggestions      []ReviewDetail `json:"suggestions"`
}
