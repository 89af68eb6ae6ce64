package creation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flipsync/fabric/bestoffer"
	"github.com/flipsync/fabric/external"
	"github.com/flipsync/fabric/marketopt"
	"github.com/flipsync/fabric/types"
)

const (
	imageAnalysisFallbackConfidence = 0.3
	researchFallbackConfidence      = 0.3
	defaultListPriceUSD             = 50.00

	highProfitVsSpeed = 0.7
	lowProfitVsSpeed  = 0.3
	profitMargin      = 0.5

	costBasisHighMarkup = 1.5
	costBasisLowMarkup  = 1.3
)

// CostRecorder is the subset of cost.Tracker this workflow records
// stage spend through.
type CostRecorder interface {
	Record(entry types.CostEntry)
}

// Workflow implements C10, wiring the external vision/research/content
// collaborators together with C11 and C12.
type Workflow struct {
	vision   external.VisionAnalyzer
	research external.ResearchService
	content  external.ContentOptimizer
	offers   *bestoffer.Manager
	cost     CostRecorder
	logger   *zap.Logger
}

// Config configures a new Workflow. Vision is required; Research,
// Content, and Offers may be nil (their stages are then skipped or
// degraded per the request's enable flags).
type Config struct {
	Vision   external.VisionAnalyzer
	Research external.ResearchService
	Content  external.ContentOptimizer
	Offers   *bestoffer.Manager
	Cost     CostRecorder
	Logger   *zap.Logger
}

// New builds a Workflow.
func New(cfg Config) *Workflow {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		vision:   cfg.Vision,
		research: cfg.Research,
		content:  cfg.Content,
		offers:   cfg.Offers,
		cost:     cfg.Cost,
		logger:   logger.With(zap.String("component", "creation.workflow")),
	}
}

// Run executes the seven stages in order and compiles an
// OptimizedListing. It is best-effort end-to-end: a single stage's
// failure downgrades confidence and records an improvement note rather
// than aborting, except when image analysis yields zero product data
// and web research is disabled, in which case it fails with
// INSUFFICIENT_INPUT.
func (w *Workflow) Run(ctx context.Context, req CreationRequest) (*types.OptimizedListing, error) {
	start := time.Now()
	workflowID := uuid.NewString()
	var improvements []string
	var sourcesUsed []string
	var totalCost float64

	analysis := w.analyzeImage(ctx, workflowID, req, &totalCost, &improvements)

	if analysis.Confidence <= imageAnalysisFallbackConfidence && len(analysis.ProductData.Features) == 0 && analysis.ProductData.Title == "" && !req.EnableWebResearch {
		return nil, types.NewError(types.ErrInsufficientInput, "image analysis produced no usable data and web research is disabled").WithComponent("creation")
	}

	research := w.researchProduct(ctx, workflowID, req, analysis, &totalCost, &improvements, &sourcesUsed)

	category := marketopt.OptimizeCategory(analysis.ProductData.Title, req.TargetCategory, attributesOf(analysis.ProductData))

	baseContent := external.BaseContent{
		Title:         analysis.ProductData.Title,
		Description:   describeFromFeatures(analysis.ProductData),
		ItemSpecifics: attributesOf(analysis.ProductData),
	}
	content, cassiniScore := w.optimizeContent(ctx, workflowID, req, baseContent, analysis.ProductData, research, &totalCost, &improvements)

	price := w.priceListing(req, research)

	settings := w.configureBestOffer(ctx, req, &improvements)

	title, truncated := types.TruncateTitle(content.Title)
	if truncated {
		improvements = append(improvements, "title truncated to fit the marketplace length limit")
	}

	listing := &types.OptimizedListing{
		WorkflowID:         workflowID,
		Title:              title,
		Description:        content.Description,
		CategoryID:         category.PrimaryCategory.ID,
		ItemSpecifics:      content.ItemSpecifics,
		SuggestedPrice:     price,
		BestOfferSettings:  settings,
		CassiniScore:       cassiniScore,
		ResearchConfidence: types.Clamp(research.ResearchConfidence, 0, 1),
		Improvements:       improvements,
		ProcessingTimeSec:  time.Since(start).Seconds(),
		TotalCostUSD:       totalCost,
		SourcesUsed:        sourcesUsed,
		CreatedAt:          time.Now(),
	}
	return listing, nil
}

func (w *Workflow) analyzeImage(ctx context.Context, workflowID string, req CreationRequest, totalCost *float64, improvements *[]string) external.VisionAnalysis {
	if w.vision == nil {
		*improvements = append(*improvements, "vision analyzer unavailable, used minimal default product data")
		return external.VisionAnalysis{Confidence: imageAnalysisFallbackConfidence}
	}

	start := time.Now()
	result, err := w.vision.AnalyzeImage(ctx, req.ImageBytes, req.Filename, req.Marketplace, nil)
	w.recordCost(types.CategoryVisionAnalysis, "vision_analysis", workflowID, time.Since(start).Seconds(), totalCost)
	if err != nil || result == nil {
		w.logger.Warn("image analysis failed, continuing with minimal default", zap.Error(err))
		*improvements = append(*improvements, "image analysis failed, continuing with minimal default product data")
		return external.VisionAnalysis{Confidence: imageAnalysisFallbackConfidence}
	}
	return *result
}

func (w *Workflow) researchProduct(ctx context.Context, workflowID string, req CreationRequest, analysis external.VisionAnalysis, totalCost *float64, improvements *[]string, sourcesUsed *[]string) external.ResearchResult {
	if !req.EnableWebResearch {
		*sourcesUsed = append(*sourcesUsed, "image_analysis_only")
		return external.ResearchResult{ResearchConfidence: researchFallbackConfidence, SourcesUsed: []string{"image_analysis_only"}}
	}
	if w.research == nil {
		*improvements = append(*improvements, "research requested but no research service is configured")
		*sourcesUsed = append(*sourcesUsed, "image_analysis_only")
		return external.ResearchResult{ResearchConfidence: researchFallbackConfidence, SourcesUsed: []string{"image_analysis_only"}}
	}

	start := time.Now()
	result, err := w.research.Research(ctx, analysis, req.Marketplace)
	w.recordCost(types.CategoryMarketResearch, "product_research", workflowID, time.Since(start).Seconds(), totalCost)
	if err != nil || result == nil {
		w.logger.Warn("product research failed, continuing with image analysis only", zap.Error(err))
		*improvements = append(*improvements, "product research failed, continuing with image analysis only")
		*sourcesUsed = append(*sourcesUsed, "image_analysis_only")
		return external.ResearchResult{ResearchConfidence: researchFallbackConfidence, SourcesUsed: []string{"image_analysis_only"}}
	}
	*sourcesUsed = append(*sourcesUsed, result.SourcesUsed...)
	return *result
}

func (w *Workflow) optimizeContent(ctx context.Context, workflowID string, req CreationRequest, base external.BaseContent, productData external.ProductData, research external.ResearchResult, totalCost *float64, improvements *[]string) (external.OptimizedContent, float64) {
	if !req.EnableCassiniOptimization || w.content == nil {
		return external.OptimizedContent{Title: base.Title, Description: base.Description, ItemSpecifics: base.ItemSpecifics}, 0
	}

	start := time.Now()
	result, err := w.content.Optimize(ctx, base, productData, research.Features)
	w.recordCost(types.CategoryContentCreation, "content_optimization", workflowID, time.Since(start).Seconds(), totalCost)
	if err != nil || result == nil {
		w.logger.Warn("content optimization failed, using base content", zap.Error(err))
		*improvements = append(*improvements, "content optimization failed, used unoptimized listing content")
		return external.OptimizedContent{Title: base.Title, Description: base.Description, ItemSpecifics: base.ItemSpecifics}, 0
	}
	return *result, types.Clamp(result.Cassini.OverallScore, 0, 100)
}

// priceListing applies the fixed pricing-strategy branches: competitive
// prices take precedence, then cost basis, then a flat default.
func (w *Workflow) priceListing(req CreationRequest, research external.ResearchResult) float64 {
	if len(research.CompetitivePrices) > 0 {
		avg, min := competitiveStats(research.CompetitivePrices)
		var price float64
		switch {
		case req.ProfitVsSpeed > highProfitVsSpeed:
			price = avg * 1.05
		case req.ProfitVsSpeed < lowProfitVsSpeed:
			price = min * 0.98
		default:
			price = avg * 0.99
		}
		return round2(price)
	}
	if req.CostBasis > 0 {
		markup := costBasisLowMarkup
		if req.ProfitVsSpeed > profitMargin {
			markup = costBasisHighMarkup
		}
		return round2(req.CostBasis * markup)
	}
	return round2(defaultListPriceUSD)
}

func (w *Workflow) configureBestOffer(ctx context.Context, req CreationRequest, improvements *[]string) *types.BestOfferSettings {
	if !req.EnableBestOffer {
		return nil
	}

	settings := deriveBestOfferSettings(req)
	if w.offers == nil {
		*improvements = append(*improvements, "best offer manager unavailable, used balanced default settings")
		fallback := bestoffer.DefaultSettings()
		return &fallback
	}

	if err := w.offers.ConfigureUserSettings(ctx, req.UserID, settings); err != nil {
		w.logger.Warn("best offer configuration failed, falling back to balanced defaults", zap.Error(err))
		*improvements = append(*improvements, "best offer configuration failed, used balanced default settings")
		fallback := bestoffer.DefaultSettings()
		return &fallback
	}
	return &settings
}

func deriveBestOfferSettings(req CreationRequest) types.BestOfferSettings {
	settings := bestoffer.DefaultSettings()
	settings.ProfitVsSpeed = types.Clamp(req.ProfitVsSpeed, 0, 1)
	if req.MinProfitMargin > 0 {
		settings.MinProfitMargin = types.Clamp(req.MinProfitMargin, 0, 1)
	}
	return settings
}

func (w *Workflow) recordCost(category types.CostCategory, operation, workflowID string, responseTimeSec float64, totalCost *float64) {
	if w.cost == nil {
		return
	}
	entry := types.CostEntry{
		Timestamp:       time.Now(),
		Category:        category,
		Operation:       operation,
		WorkflowID:      workflowID,
		ResponseTimeSec: responseTimeSec,
	}
	w.cost.Record(entry)
	*totalCost += entry.CostUSD
}

func competitiveStats(prices []external.CompetitivePrice) (avg, min float64) {
	if len(prices) == 0 {
		return 0, 0
	}
	sum := 0.0
	min = prices[0].Price
	for _, p := range prices {
		sum += p.Price
		if p.Price < min {
			min = p.Price
		}
	}
	return sum / float64(len(prices)), min
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func attributesOf(pd external.ProductData) map[string]string {
	attrs := map[string]string{}
	if pd.Brand != "" {
		attrs["brand"] = pd.Brand
	}
	if pd.Condition != "" {
		attrs["condition"] = pd.Condition
	}
	if pd.Category != "" {
		attrs["category"] = pd.Category
	}
	return attrs
}

func describeFromFeatures(pd external.ProductData) string {
	if len(pd.Features) == 0 {
		return pd.Title
	}
	description := pd.Title + " - "
	for i, feature := range pd.Features {
		if i > 0 {
			description += ", "
		}
		description += feature
	}
	return description
}
