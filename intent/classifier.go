// Package intent is the Intent Recognizer (C5): a pure, deterministic
// classifier over a static keyword table. No I/O, no LLM calls.
package intent

import (
	"strings"

	"github.com/flipsync/fabric/types"
)

// rawScoreFloor is the minimum winning rawScore before classify falls
// back to GENERAL.
const rawScoreFloor = 0.1

// keywordBag is one IntentKind's match table.
type keywordBag struct {
	kind            types.IntentKind
	keywords        []string
	confidenceBoost float64
}

// table is the static keyword bag, ordered to match types.Roles'
// enum-declaration order for deterministic tie-breaking.
var table = []keywordBag{
	{
		kind:            types.IntentPricing,
		keywords:        []string{"price", "pricing", "cost", "worth", "value", "markup", "margin", "discount"},
		confidenceBoost: 0.1,
	},
	{
		kind:            types.IntentListingSEO,
		keywords:        []string{"title", "description", "keyword", "seo", "listing", "photo", "image", "search rank"},
		confidenceBoost: 0.1,
	},
	{
		kind:            types.IntentLogistics,
		keywords:        []string{"ship", "shipping", "delivery", "tracking", "package", "carrier", "label", "return"},
		confidenceBoost: 0.1,
	},
	{
		kind:            types.IntentStrategy,
		keywords:        []string{"strategy", "growth", "expand", "forecast", "plan", "roadmap", "competitor"},
		confidenceBoost: 0.05,
	},
}

// Classify implements the deterministic classification algorithm: for
// each intent in the static keyword table, score by the fraction of its
// keywords present in the lowercased message plus a fixed confidence
// boost, then pick the highest score (ties broken by the declared
// table order). A best score below rawScoreFloor falls back to GENERAL.
func Classify(message string, context map[string]any) types.IntentResult {
	lower := strings.ToLower(message)

	var best keywordBag
	var bestMatches []string
	bestScore := -1.0

	for _, bag := range table {
		var matches []string
		for _, kw := range bag.keywords {
			if strings.Contains(lower, kw) {
				matches = append(matches, kw)
			}
		}
		if len(matches) == 0 {
			continue
		}
		rawScore := float64(len(matches))/float64(len(bag.keywords)) + bag.confidenceBoost
		if rawScore > bestScore {
			bestScore = rawScore
			best = bag
			bestMatches = matches
		}
	}

	if bestScore < rawScoreFloor {
		return types.IntentResult{
			Intent:     types.IntentGeneral,
			Confidence: 0.5,
			TargetRole: types.RoleLiaison,
			Rationale:  "no specific intent detected",
		}
	}

	confidence := bestScore
	if confidence > 1.0 {
		confidence = 1.0
	}

	return types.IntentResult{
		Intent:          best.kind,
		Confidence:      confidence,
		TargetRole:      types.DefaultRoleFor(best.kind),
		MatchedKeywords: bestMatches,
		Rationale:       "matched keywords for " + string(best.kind),
	}
}
