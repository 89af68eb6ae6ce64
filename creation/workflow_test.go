package creation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipsync/fabric/bestoffer"
	"github.com/flipsync/fabric/external"
	"github.com/flipsync/fabric/types"
)

type fakeVision struct {
	result *external.VisionAnalysis
	err    error
}

func (f *fakeVision) AnalyzeImage(ctx context.Context, imageBytes []byte, kind, marketplace string, context map[string]any) (*external.VisionAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeResearch struct {
	result *external.ResearchResult
	err    error
}

func (f *fakeResearch) Research(ctx context.Context, analysis external.VisionAnalysis, marketplace string) (*external.ResearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeContent struct {
	result *external.OptimizedContent
	err    error
}

func (f *fakeContent) Optimize(ctx context.Context, base external.BaseContent, productData external.ProductData, targetKeywords []string) (*external.OptimizedContent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func baseRequest() CreationRequest {
	return CreationRequest{
		ImageBytes:        []byte("fake-image"),
		Filename:          "item.jpg",
		UserID:            "u1",
		Marketplace:       "ebay",
		ProfitVsSpeed:     0.5,
		MinProfitMargin:   0.15,
		EnableWebResearch: true,
	}
}

func TestRun_CompilesListingFromSuccessfulStages(t *testing.T) {
	vision := &fakeVision{result: &external.VisionAnalysis{ProductData: external.ProductData{Title: "Vintage Camera", Brand: "Canon", Features: []string{"35mm", "manual focus"}}, Confidence: 0.9}}
	research := &fakeResearch{result: &external.ResearchResult{
		CompetitivePrices:  []external.CompetitivePrice{{Source: "a", Price: 100}, {Source: "b", Price: 120}},
		ResearchConfidence: 0.8,
		SourcesUsed:        []string{"marketplace_search"},
	}}
	wf := New(Config{Vision: vision, Research: research})

	listing, err := wf.Run(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, "Vintage Camera", listing.Title)
	assert.Greater(t, listing.SuggestedPrice, 0.0)
	assert.Contains(t, listing.SourcesUsed, "marketplace_search")
}

func TestRun_FailsInsufficientInputWhenVisionEmptyAndResearchDisabled(t *testing.T) {
	vision := &fakeVision{result: &external.VisionAnalysis{Confidence: 0.1}}
	req := baseRequest()
	req.EnableWebResearch = false
	wf := New(Config{Vision: vision})

	_, err := wf.Run(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, types.ErrInsufficientInput, types.CodeOf(err))
}

func TestRun_VisionFailureDowngradesConfidenceButContinues(t *testing.T) {
	vision := &fakeVision{err: types.NewError(types.ErrTransport, "down")}
	wf := New(Config{Vision: vision})

	listing, err := wf.Run(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Contains(t, listing.Improvements, "image analysis failed, continuing with minimal default product data")
}

func TestRun_PricingHighProfitVsSpeedUsesAveragePremium(t *testing.T) {
	vision := &fakeVision{result: &external.VisionAnalysis{ProductData: external.ProductData{Title: "Widget"}, Confidence: 0.9}}
	research := &fakeResearch{result: &external.ResearchResult{CompetitivePrices: []external.CompetitivePrice{{Price: 100}, {Price: 100}}, ResearchConfidence: 0.8}}
	req := baseRequest()
	req.ProfitVsSpeed = 0.9
	wf := New(Config{Vision: vision, Research: research})

	listing, err := wf.Run(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 105.0, listing.SuggestedPrice, 0.01)
}

func TestRun_PricingLowProfitVsSpeedUsesMinDiscount(t *testing.T) {
	vision := &fakeVision{result: &external.VisionAnalysis{ProductData: external.ProductData{Title: "Widget"}, Confidence: 0.9}}
	research := &fakeResearch{result: &external.ResearchResult{CompetitivePrices: []external.CompetitivePrice{{Price: 100}, {Price: 80}}, ResearchConfidence: 0.8}}
	req := baseRequest()
	req.ProfitVsSpeed = 0.1
	wf := New(Config{Vision: vision, Research: research})

	listing, err := wf.Run(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 78.4, listing.SuggestedPrice, 0.01)
}

func TestRun_PricingFallsBackToCostBasisWithoutCompetitivePrices(t *testing.T) {
	vision := &fakeVision{result: &external.VisionAnalysis{ProductData: external.ProductData{Title: "Widget"}, Confidence: 0.9}}
	req := baseRequest()
	req.EnableWebResearch = false
	req.CostBasis = 20
	req.ProfitVsSpeed = 0.8
	wf := New(Config{Vision: vision})

	listing, err := wf.Run(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, listing.SuggestedPrice, 0.01)
}

func TestRun_PricingDefaultsWithNoSignal(t *testing.T) {
	vision := &fakeVision{result: &external.VisionAnalysis{ProductData: external.ProductData{Title: "Widget"}, Confidence: 0.9}}
	req := baseRequest()
	req.EnableWebResearch = false
	wf := New(Config{Vision: vision})

	listing, err := wf.Run(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, listing.SuggestedPrice, 0.01)
}

func TestRun_TitleTruncatedBeyondMaxLenRecordsImprovement(t *testing.T) {
	longTitle := ""
	for i := 0; i < 20; i++ {
		longTitle += "abcde "
	}
	vision := &fakeVision{result: &external.VisionAnalysis{ProductData: external.ProductData{Title: longTitle}, Confidence: 0.9}}
	req := baseRequest()
	req.EnableWebResearch = false
	wf := New(Config{Vision: vision})

	listing, err := wf.Run(context.Background(), req)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(listing.Title), types.MaxTitleLen)
	assert.Contains(t, listing.Improvements, "title truncated to fit the marketplace length limit")
}

func TestRun_BestOfferConfiguredWhenEnabled(t *testing.T) {
	vision := &fakeVision{result: &external.VisionAnalysis{ProductData: external.ProductData{Title: "Widget"}, Confidence: 0.9}}
	req := baseRequest()
	req.EnableWebResearch = false
	req.EnableBestOffer = true
	wf := New(Config{Vision: vision, Offers: bestoffer.New(nil, nil)})

	listing, err := wf.Run(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, listing.BestOfferSettings)
	assert.InDelta(t, req.ProfitVsSpeed, listing.BestOfferSettings.ProfitVsSpeed, 0.001)
}

func TestRun_BestOfferSkippedWhenDisabled(t *testing.T) {
	vision := &fakeVision{result: &external.VisionAnalysis{ProductData: external.ProductData{Title: "Widget"}, Confidence: 0.9}}
	req := baseRequest()
	req.EnableWebResearch = false
	wf := New(Config{Vision: vision})

	listing, err := wf.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, listing.BestOfferSettings)
}

func TestRun_ContentOptimizationAppliedWhenEnabled(t *testing.T) {
	vision := &fakeVision{result: &external.VisionAnalysis{ProductData: external.ProductData{Title: "Widget"}, Confidence: 0.9}}
	content := &fakeContent{result: &external.OptimizedContent{Title: "Optimized Widget", Description: "great widget", Cassini: external.CassiniOptimization{OverallScore: 82}}}
	req := baseRequest()
	req.EnableWebResearch = false
	req.EnableCassiniOptimization = true
	wf := New(Config{Vision: vision, Content: content})

	listing, err := wf.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Optimized Widget", listing.Title)
	assert.InDelta(t, 82.0, listing.CassiniScore, 0.01)
}
