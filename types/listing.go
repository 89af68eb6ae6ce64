package types

import "time"

// OptimizedListing is the compiled output of the Product-Creation
// Workflow (C10).
type OptimizedListing struct {
	WorkflowID         string
	Title              string
	Description        string
	CategoryID         string
	ItemSpecifics      map[string]string
	SuggestedPrice     float64
	BestOfferSettings  *BestOfferSettings
	CassiniScore       float64
	ResearchConfidence float64
	Improvements       []string
	ProcessingTimeSec  float64
	TotalCostUSD       float64
	SourcesUsed        []string
	CreatedAt          time.Time
}

// MaxTitleLen is the title length cap enforced when compiling a listing.
const MaxTitleLen = 80

// TruncateTitle truncates title to MaxTitleLen, appending "..." when
// truncation occurs, and reports whether truncation happened.
func TruncateTitle(title string) (string, bool) {
	if len(title) <= MaxTitleLen {
		return title, false
	}
	const suffix = "..."
	cut := MaxTitleLen - len(suffix)
	if cut < 0 {
		cut = 0
	}
	return title[:cut] + suffix, true
}
