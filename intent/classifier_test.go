package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipsync/fabric/types"
)

func TestClassify_PricingIntentRouting(t *testing.T) {
	result := Classify("what should I price this camera at?", nil)
	assert.Equal(t, types.IntentPricing, result.Intent)
	assert.Equal(t, types.RoleMarket, result.TargetRole)
	assert.Contains(t, result.MatchedKeywords, "price")
	assert.GreaterOrEqual(t, result.Confidence, 0.1)
}

func TestClassify_ListingSEOIntent(t *testing.T) {
	result := Classify("can you improve my listing title and keywords?", nil)
	assert.Equal(t, types.IntentListingSEO, result.Intent)
	assert.Equal(t, types.RoleContent, result.TargetRole)
}

func TestClassify_LogisticsIntent(t *testing.T) {
	result := Classify("when will shipping and delivery tracking update?", nil)
	assert.Equal(t, types.IntentLogistics, result.Intent)
	assert.Equal(t, types.RoleLogistics, result.TargetRole)
}

func TestClassify_NoKeywordMatchFallsBackToGeneral(t *testing.T) {
	result := Classify("hello there, how are you today", nil)
	assert.Equal(t, types.IntentGeneral, result.Intent)
	assert.Equal(t, types.RoleLiaison, result.TargetRole)
	assert.Equal(t, 0.5, result.Confidence)
	assert.NotEmpty(t, result.Rationale)
}

func TestClassify_ConfidenceNeverExceedsOne(t *testing.T) {
	result := Classify("price pricing cost worth value markup margin discount", nil)
	require.Equal(t, types.IntentPricing, result.Intent)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestClassify_DeterministicAcrossRepeatedCalls(t *testing.T) {
	msg := "what's a fair price for this item"
	first := Classify(msg, nil)
	second := Classify(msg, nil)
	assert.Equal(t, first, second)
}
