package models

import "time"

// Project is a registered repository on the review service. Ordering within
// the dashboard is client-controlled via SortOrder unless a server-computed
// sort replaces the whole list.
type Project struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	GithubURL      string     `json:"github_url"`
	UserID         string     `json:"user_id"`
	Description    string     `json:"description,omitempty"`
	Language       string     `json:"language,omitempty"`
	AverageScore   *float64   `json:"average_score,omitempty"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	SortOrder      int        `json:"sort_order"`
}

// SortKey selects how the server orders a project list.
type SortKey string

const (
	SortManual   SortKey = "manual"
	SortNewest   SortKey = "newest"
	SortOldest   SortKey = "oldest"
	SortNameAsc  SortKey = "name_asc"
	SortNameDesc SortKey = "name_desc"
)

// ValidSortKey reports whether k is one of the recognized sort keys.
func ValidSortKey(k SortKey) bool {
	switch k {
	case SortManual, SortNewest, SortOldest, SortNameAsc, SortNameDesc:
		return true
	}
	return false
}

// SnykScanResult is the opaque passthrough payload from a dependency scan.
type SnykScanResult map[string]any
