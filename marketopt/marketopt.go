// Package marketopt is the Marketplace Optimization component (C12):
// category recommendation and listing-quality scoring.
package marketopt

import "strings"

// CategoryCandidate is one entry in the scoring table: a category key
// plus the signal words that indicate a product belongs to it.
type CategoryCandidate struct {
	ID       string
	Name     string
	Signals  []string
	Keywords []string
}

// Category identifies a recommended marketplace category.
type Category struct {
	ID   string
	Name string
}

// CategoryRecommendation is the result of optimizeCategory.
type CategoryRecommendation struct {
	PrimaryCategory Category
	Alternatives    []Category
	Confidence      float64
	Reasoning       string
}

// QualityInput carries the listing content scored by ScoreListingQuality.
type QualityInput struct {
	TitleLen       int
	DescriptionLen int
	PhotoCount     int
	KeywordCount   int
	HasShipping    bool
}

const (
	signalMatchBonus  = 0.3
	keywordMatchBonus = 0.05
	maxKeywordBonus   = 0.2
	baseFitScore      = 0.5
	titleOptimumMin   = 40
	titleOptimumMax   = 80
	minPhotoCount     = 5
	minKeywordCount   = 5
)

// DefaultCatalog is the candidate category table optimizeCategory scores
// against. Callers needing a different taxonomy build their own slice
// and call OptimizeCategoryWith directly.
var DefaultCatalog = []CategoryCandidate{
	{ID: "electronics", Name: "Consumer Electronics", Signals: []string{"electronic", "device", "battery", "charger", "cable"}, Keywords: []string{"wireless", "bluetooth", "smart", "digital", "portable"}},
	{ID: "clothing", Name: "Clothing, Shoes & Accessories", Signals: []string{"shirt", "dress", "shoe", "jacket", "apparel"}, Keywords: []string{"cotton", "size", "fit", "style", "fashion"}},
	{ID: "home", Name: "Home & Garden", Signals: []string{"furniture", "kitchen", "decor", "garden", "appliance"}, Keywords: []string{"indoor", "outdoor", "storage", "decorative", "durable"}},
	{ID: "toys", Name: "Toys & Hobbies", Signals: []string{"toy", "game", "puzzle", "figure", "collectible"}, Keywords: []string{"kids", "play", "collection", "model", "craft"}},
	{ID: "sporting_goods", Name: "Sporting Goods", Signals: []string{"sport", "fitness", "outdoor", "athletic", "exercise"}, Keywords: []string{"training", "gear", "performance", "lightweight", "pro"}},
	{ID: "collectibles", Name: "Collectibles & Art", Signals: []string{"vintage", "antique", "rare", "collectible", "art"}, Keywords: []string{"limited", "edition", "original", "signed", "authentic"}},
}

// OptimizeCategory scores DefaultCatalog against productName/attributes
// and picks the top candidate, per the fixed fit-score formula: base
// 0.5, +0.3 for any matching category signal, +0.05 per matching
// keyword capped at +0.2.
func OptimizeCategory(productName, currentCategory string, attributes map[string]string) CategoryRecommendation {
	return OptimizeCategoryWith(DefaultCatalog, productName, currentCategory, attributes)
}

// OptimizeCategoryWith is OptimizeCategory against an explicit candidate
// table.
func OptimizeCategoryWith(catalog []CategoryCandidate, productName, currentCategory string, attributes map[string]string) CategoryRecommendation {
	haystack := strings.ToLower(productName + " " + currentCategory + " " + flattenAttributes(attributes))

	type scored struct {
		candidate CategoryCandidate
		fit       float64
	}
	scores := make([]scored, 0, len(catalog))
	for _, c := range catalog {
		scores = append(scores, scored{candidate: c, fit: fitScore(haystack, c)})
	}

	// Stable selection sort, descending by fit, preserving catalog order
	// on ties so results are deterministic.
	for i := 0; i < len(scores); i++ {
		best := i
		for j := i + 1; j < len(scores); j++ {
			if scores[j].fit > scores[best].fit {
				best = j
			}
		}
		picked := scores[best]
		copy(scores[i+1:best+1], scores[i:best])
		scores[i] = picked
	}

	if len(scores) == 0 {
		return CategoryRecommendation{Reasoning: "no candidate categories configured"}
	}

	primary := scores[0]
	var alternatives []Category
	for i := 1; i < len(scores) && len(alternatives) < 2; i++ {
		alternatives = append(alternatives, Category{ID: scores[i].candidate.ID, Name: scores[i].candidate.Name})
	}

	secondary := 0.0
	if len(scores) > 1 {
		secondary = scores[1].fit
	}
	confidence := primary.fit + (primary.fit-secondary)*0.5
	if confidence > 0.95 {
		confidence = 0.95
	}
	if confidence < 0 {
		confidence = 0
	}

	return CategoryRecommendation{
		PrimaryCategory: Category{ID: primary.candidate.ID, Name: primary.candidate.Name},
		Alternatives:    alternatives,
		Confidence:      confidence,
		Reasoning:       "matched on product name, current category, and attribute signals",
	}
}

func fitScore(haystack string, candidate CategoryCandidate) float64 {
	score := baseFitScore
	for _, signal := range candidate.Signals {
		if strings.Contains(haystack, signal) {
			score += signalMatchBonus
			break
		}
	}
	keywordBonus := 0.0
	for _, keyword := range candidate.Keywords {
		if strings.Contains(haystack, keyword) {
			keywordBonus += keywordMatchBonus
		}
	}
	if keywordBonus > maxKeywordBonus {
		keywordBonus = maxKeywordBonus
	}
	return score + keywordBonus
}

func flattenAttributes(attributes map[string]string) string {
	var b strings.Builder
	for k, v := range attributes {
		b.WriteString(k)
		b.WriteString(" ")
		b.WriteString(v)
		b.WriteString(" ")
	}
	return b.String()
}

// ScoreListingQuality scores a listing's content against a fixed
// quality heuristic: title length optimum 40-80, longer descriptions
// score higher up to a cap, photo count >=5, keyword count >=5, and a
// shipping-configured bonus. Result is clamped to [0,1]. The
// Product-Creation Workflow does not call it; it uses only
// OptimizeCategory from this package.
func ScoreListingQuality(input QualityInput) float64 {
	score := 0.0

	switch {
	case input.TitleLen >= titleOptimumMin && input.TitleLen <= titleOptimumMax:
		score += 0.3
	case input.TitleLen > 0:
		score += 0.15
	}

	switch {
	case input.DescriptionLen >= 200:
		score += 0.25
	case input.DescriptionLen >= 50:
		score += 0.15
	case input.DescriptionLen > 0:
		score += 0.05
	}

	if input.PhotoCount >= minPhotoCount {
		score += 0.2
	} else if input.PhotoCount > 0 {
		score += 0.1 * (float64(input.PhotoCount) / minPhotoCount)
	}

	if input.KeywordCount >= minKeywordCount {
		score += 0.15
	} else if input.KeywordCount > 0 {
		score += 0.1 * (float64(input.KeywordCount) / minKeywordCount)
	}

	if input.HasShipping {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}
