package models

// DefaultEvidencePage is used when a retrieved chunk carries no page number.
const DefaultEvidencePage = 1

// Evidence is a retrieved snippet surfaced to the answer and highlight steps.
type Evidence struct {
	Snippet  string   `json:"snippet"`
	Page     int      `json:"page"`
	Distance *float64 `json:"distance,omitempty"`
}

// NewEvidence builds an Evidence record, defaulting a non-positive page to
// DefaultEvidencePage.
func NewEvidence(snippet string, page int, distance float64) Evidence {
	if page <= 0 {
		page = DefaultEvidencePage
	}
	d := distance
	return Evidence{Snippet: snippet, Page: page, Distance: &d}
}
