package types

import "time"

// BestOfferSettings is a user's configured Best Offer auto-response
// policy. Construct and validate via the bestoffer package; this struct
// itself carries no invariant enforcement.
type BestOfferSettings struct {
	ProfitVsSpeed              float64
	MinProfitMargin            float64
	MaxDiscountPct             float64
	AutoAccept                 bool
	AutoCounter                bool
	TimeDecayEnabled           bool
	InitialThreshold           float64
	TimeDecayDays              int
	FinalThreshold             float64
	HighInventoryThreshold     int
	HighInventoryDiscountBonus float64
}

// ListingSnapshot carries the listing-side facts needed to evaluate an
// incoming offer: inventory, age, and engagement. Sourced from the
// external MarketplaceClient.
type ListingSnapshot struct {
	ListingPrice     float64
	CostBasis        float64
	CurrentInventory int
	DaysListed       int
	Views            int
	Watchers         int
}

// OfferAction is the closed decision set for an incoming offer.
type OfferAction string

const (
	OfferAccept  OfferAction = "ACCEPT"
	OfferDecline OfferAction = "DECLINE"
	OfferCounter OfferAction = "COUNTER"
	OfferIgnore  OfferAction = "IGNORE"
)

// Offer is a buyer-initiated price proposal.
type Offer struct {
	OfferID            string
	ListingID          string
	BuyerID            string
	OfferAmount        float64
	ListingPrice       float64
	OfferedAt          time.Time
	Message            string
	BuyerFeedbackScore int
	BuyerFeedbackPct   float64
}

// OfferResponse is the Best-Offer Manager's decision for one Offer.
type OfferResponse struct {
	Action        OfferAction
	CounterAmount float64
	HasCounter    bool
	Rationale     string
	Confidence    float64
}
