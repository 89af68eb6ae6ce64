package types

import "time"

// CostCategory is the closed set of cost-accounting buckets a CostEntry
// may be recorded against.
type CostCategory string

const (
	CategoryVisionAnalysis   CostCategory = "VISION_ANALYSIS"
	CategoryTextGeneration   CostCategory = "TEXT_GENERATION"
	CategoryConversation     CostCategory = "CONVERSATION"
	CategoryMarketResearch   CostCategory = "MARKET_RESEARCH"
	CategoryContentCreation  CostCategory = "CONTENT_CREATION"
	CategoryEmbeddings       CostCategory = "EMBEDDINGS"
	CategoryShippingServices CostCategory = "SHIPPING_SERVICES"
	CategoryInventoryMgmt    CostCategory = "INVENTORY_MANAGEMENT"
)

// CostEntry is one append-only cost record.
type CostEntry struct {
	Timestamp       time.Time
	Category        CostCategory
	Model           string
	Operation       string
	CostUSD         float64
	AgentID         string
	WorkflowID      string
	TokensUsed      int
	ResponseTimeSec float64
}

// Budget tracks daily/monthly spend windows and fired alert thresholds.
// cost.Tracker keeps these windows in its own fields and does not use
// this type.
type Budget struct {
	DailyLimitUSD   float64
	MonthlyLimitUSD float64
	CurrentDay      string // YYYY-MM-DD, local
	CurrentMonth    string // YYYY-MM, local
	SpentDay        float64
	SpentMonth      float64
	AlertThresholds []float64
	AlertsFired     map[float64]bool
}
