package marketopt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimizeCategory_PicksElectronicsForDeviceSignals(t *testing.T) {
	rec := OptimizeCategory("Wireless Bluetooth Charger", "uncategorized", map[string]string{"material": "battery powered device"})
	assert.Equal(t, "electronics", rec.PrimaryCategory.ID)
	assert.LessOrEqual(t, rec.Confidence, 0.95)
}

func TestOptimizeCategory_ReturnsUpToTwoAlternatives(t *testing.T) {
	rec := OptimizeCategory("plain item", "misc", nil)
	assert.LessOrEqual(t, len(rec.Alternatives), 2)
}

func TestOptimizeCategory_ConfidenceNeverExceedsCap(t *testing.T) {
	rec := OptimizeCategory("electronic device battery charger cable wireless bluetooth smart digital portable", "electronics", nil)
	assert.LessOrEqual(t, rec.Confidence, 0.95)
}

func TestOptimizeCategory_DeterministicTieBreakOnEqualScores(t *testing.T) {
	rec1 := OptimizeCategory("generic unmatched product", "none", nil)
	rec2 := OptimizeCategory("generic unmatched product", "none", nil)
	assert.Equal(t, rec1.PrimaryCategory, rec2.PrimaryCategory)
}

func TestScoreListingQuality_FullScoreNearOne(t *testing.T) {
	score := ScoreListingQuality(QualityInput{
		TitleLen:       60,
		DescriptionLen: 300,
		PhotoCount:     8,
		KeywordCount:   10,
		HasShipping:    true,
	})
	assert.InDelta(t, 1.0, score, 0.001)
}

func TestScoreListingQuality_EmptyInputScoresZero(t *testing.T) {
	score := ScoreListingQuality(QualityInput{})
	assert.Equal(t, 0.0, score)
}

func TestScoreListingQuality_StaysWithinUnitInterval(t *testing.T) {
	score := ScoreListingQuality(QualityInput{TitleLen: 1000, DescriptionLen: 1000, PhotoCount: 50, KeywordCount: 50, HasShipping: true})
	assert.LessOrEqual(t, score, 1.0)
	assert.GreaterOrEqual(t, score, 0.0)
}
