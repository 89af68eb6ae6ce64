// Package external declares the collaborator interfaces the fabric
// depends on but does not implement: persistent stores, marketplace
// clients, vision/research/content services. Production wiring lives
// outside this module; tests use in-memory doubles.
package external

import (
	"context"
	"time"
)

// VectorStore is the abstract vector search interface consumed by
// retrieval-backed components. No concrete driver is implemented here.
type VectorStore interface {
	Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]any) error
	Search(ctx context.Context, collection string, vector []float32, limit int, minScore float64, filter map[string]any) ([]VectorHit, error)
}

// VectorHit is one VectorStore.Search result.
type VectorHit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Listing is a marketplace listing summary as returned by
// MarketplaceClient.SearchProducts.
type Listing struct {
	ItemID string
	Title  string
	Price  float64
	URL    string
}

// InventoryStatus is a SKU's inventory snapshot.
type InventoryStatus struct {
	SKU       string
	Quantity  int
	Available bool
}

// SalesMetrics is the rolling sales performance for one item.
type SalesMetrics struct {
	ItemID     string
	Views      int
	Watchers   int
	UnitsSold  int
	WindowDays int
}

// MarketplaceClient is the abstract interface over a marketplace API
// (eBay, Amazon, ...). Rate limiting (>=1 req/sec per host) and token
// refresh are the implementation's responsibility.
type MarketplaceClient interface {
	SearchProducts(ctx context.Context, query string, limit int) ([]Listing, error)
	GetInventory(ctx context.Context, sku string) (*InventoryStatus, error)
	GetSalesMetrics(ctx context.Context, itemID string, days int) (*SalesMetrics, error)
}

// ProductData is the structured output of image analysis.
type ProductData struct {
	Title     string
	Brand     string
	Category  string
	Condition string
	Features  []string
}

// VisionAnalysis is the result of VisionAnalyzer.AnalyzeImage.
type VisionAnalysis struct {
	ProductData ProductData
	Confidence  float64
	Metadata    map[string]any
}

// VisionAnalyzer analyzes a product image into structured data.
type VisionAnalyzer interface {
	AnalyzeImage(ctx context.Context, imageBytes []byte, kind, marketplace string, context map[string]any) (*VisionAnalysis, error)
}

// CompetitivePrice is one comparable price point found during research.
type CompetitivePrice struct {
	Source string
	Price  float64
}

// ResearchResult is the result of ResearchService.Research.
type ResearchResult struct {
	Specs              map[string]string
	Features           []string
	CompetitivePrices  []CompetitivePrice
	MarketPosition     string
	ResearchConfidence float64
	SourcesUsed        []string
	Timestamp          time.Time
}

// ResearchService performs web-backed product research from an image
// analysis result. Implementations must honor robots.txt and rate-limit
// to at least 1 request/sec per host.
type ResearchService interface {
	Research(ctx context.Context, analysis VisionAnalysis, marketplace string) (*ResearchResult, error)
}

// BaseContent is the pre-optimization content passed to ContentOptimizer.
type BaseContent struct {
	Title         string
	Description   string
	ItemSpecifics map[string]string
}

// CassiniOptimization carries the listing-quality score and the
// improvements applied to reach it.
type CassiniOptimization struct {
	OverallScore float64
	Improvements []string
}

// OptimizedContent is the result of ContentOptimizer.Optimize.
type OptimizedContent struct {
	Title         string
	Description   string
	ItemSpecifics map[string]string
	Cassini       CassiniOptimization
}

// ContentOptimizer rewrites listing content to improve search ranking.
type ContentOptimizer interface {
	Optimize(ctx context.Context, base BaseContent, productData ProductData, targetKeywords []string) (*OptimizedContent, error)
}

// AgentRepository persists conversational agent interaction records.
// Write failures here are logged and swallowed by callers.
type AgentRepository interface {
	LogAgentDecision(ctx context.Context, session DBSession, agentID string, agentType string, decisionType string, params map[string]any, confidence float64, rationale string, requiresApproval bool) error
}

// DBSession is an opaque scoped transaction/session handle. The core
// only needs commit/rollback semantics; schema ownership is external.
type DBSession interface {
	Commit() error
	Rollback() error
}

// MarketplaceSettingsStore persists per-user Best Offer settings; owned
// by an external repository, not by the bestoffer package itself.
type MarketplaceSettingsStore interface {
	SaveBestOfferSettings(ctx context.Context, userID string, settings any) error
	LoadBestOfferSettings(ctx context.Context, userID string) (any, bool, error)
}
