// Package bestoffer is the Best-Offer Manager (C11): per-user Best
// Offer settings and the acceptance/counter/decline decision for an
// incoming offer.
package bestoffer

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flipsync/fabric/external"
	"github.com/flipsync/fabric/types"
)

const (
	autoCounterFloor          = 0.70
	lowEngagement             = 0.95
	highEngagement            = 1.05
	normalEngagement          = 1.0
	lowViewsPerDay            = 5.0
	lowWatchersPerDay         = 1.0
	highViewsPerDay           = 20.0
	highWatchersPerDay        = 5.0
	counterRoundingCutoverUSD = 100.0
)

// DefaultSettings returns the balanced preset used as a fallback when a
// caller-derived configuration cannot be validated or persisted.
func DefaultSettings() types.BestOfferSettings {
	return types.BestOfferSettings{
		ProfitVsSpeed:              0.5,
		MinProfitMargin:            0.15,
		MaxDiscountPct:             0.25,
		AutoAccept:                 true,
		AutoCounter:                true,
		TimeDecayEnabled:           true,
		InitialThreshold:           0.90,
		TimeDecayDays:              7,
		FinalThreshold:             0.75,
		HighInventoryThreshold:     10,
		HighInventoryDiscountBonus: 0.05,
	}
}

// Stats is the windowed Best-Offer performance summary returned by
// OfferStatistics.
type Stats struct {
	TotalOffers        int
	Accepted           int
	Declined           int
	Countered          int
	AcceptanceRate     float64
	AverageAcceptedPct float64
	TotalRevenueUSD    float64
}

// offerRecord is one resolved decision kept for OfferStatistics.
type offerRecord struct {
	response     types.OfferResponse
	offerPct     float64
	listingPrice float64
	at           time.Time
}

// Manager implements C11. Settings are cached in memory and persisted
// through an external.MarketplaceSettingsStore. Offer outcomes are kept
// in memory per user for OfferStatistics.
type Manager struct {
	mu      sync.RWMutex
	cache   map[string]types.BestOfferSettings
	history map[string][]offerRecord
	store   external.MarketplaceSettingsStore
	logger  *zap.Logger
}

// New builds a Manager. store may be nil, in which case settings are
// kept in memory only (useful for tests).
func New(store external.MarketplaceSettingsStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cache:   make(map[string]types.BestOfferSettings),
		history: make(map[string][]offerRecord),
		store:   store,
		logger:  logger.With(zap.String("component", "bestoffer.manager")),
	}
}

// ConfigureUserSettings validates and stores settings for userID.
// Returns a VALIDATION_ERROR if any percentage is outside [0,1] or
// InitialThreshold < FinalThreshold.
func (m *Manager) ConfigureUserSettings(ctx context.Context, userID string, settings types.BestOfferSettings) error {
	if err := validate(settings); err != nil {
		return err
	}

	m.mu.Lock()
	m.cache[userID] = settings
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	if err := m.store.SaveBestOfferSettings(ctx, userID, settings); err != nil {
		m.logger.Warn("failed to persist best offer settings", zap.String("user_id", userID), zap.Error(err))
		return types.NewError(types.ErrTransport, "failed to persist best offer settings").WithCause(err).WithComponent("bestoffer").WithRetryable(true)
	}
	return nil
}

func validate(s types.BestOfferSettings) error {
	if !inUnitInterval(s.ProfitVsSpeed) || !inUnitInterval(s.MinProfitMargin) || !inUnitInterval(s.MaxDiscountPct) {
		return types.NewError(types.ErrValidation, "percentages must be within [0,1]").WithComponent("bestoffer")
	}
	if s.InitialThreshold < s.FinalThreshold {
		return types.NewError(types.ErrValidation, "initialThreshold must be >= finalThreshold").WithComponent("bestoffer")
	}
	return nil
}

func inUnitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

func (m *Manager) settingsFor(ctx context.Context, userID string) (types.BestOfferSettings, bool) {
	m.mu.RLock()
	settings, ok := m.cache[userID]
	m.mu.RUnlock()
	if ok {
		return settings, true
	}

	if m.store == nil {
		return types.BestOfferSettings{}, false
	}
	raw, found, err := m.store.LoadBestOfferSettings(ctx, userID)
	if err != nil || !found {
		return types.BestOfferSettings{}, false
	}
	loaded, ok := raw.(types.BestOfferSettings)
	if !ok {
		return types.BestOfferSettings{}, false
	}
	m.mu.Lock()
	m.cache[userID] = loaded
	m.mu.Unlock()
	return loaded, true
}

// ProcessIncomingOffer computes the acceptance threshold for offer
// against listing and returns the ACCEPT/COUNTER/DECLINE/IGNORE
// decision. Any internal error (no settings configured, degenerate
// listing price) yields IGNORE with confidence 0.
func (m *Manager) ProcessIncomingOffer(ctx context.Context, userID string, offer types.Offer, listing types.ListingSnapshot) types.OfferResponse {
	settings, ok := m.settingsFor(ctx, userID)
	if !ok {
		return types.OfferResponse{Action: types.OfferIgnore, Rationale: "no Best Offer settings configured for user", Confidence: 0.0}
	}
	if listing.ListingPrice <= 0 || offer.ListingPrice <= 0 {
		return types.OfferResponse{Action: types.OfferIgnore, Rationale: "listing price is not positive", Confidence: 0.0}
	}

	threshold := acceptanceThreshold(settings, listing)
	pct := offer.OfferAmount / listing.ListingPrice

	var response types.OfferResponse
	switch {
	case pct >= threshold:
		response = types.OfferResponse{Action: types.OfferAccept, Rationale: "offer meets acceptance threshold", Confidence: 0.9}
	case settings.AutoCounter && pct >= autoCounterFloor:
		counter := roundCounterOffer(listing.ListingPrice*threshold, listing.ListingPrice)
		response = types.OfferResponse{Action: types.OfferCounter, HasCounter: true, CounterAmount: counter, Rationale: "countering below acceptance threshold", Confidence: 0.8}
	default:
		response = types.OfferResponse{Action: types.OfferDecline, Rationale: "offer below minimum threshold", Confidence: 0.7}
	}

	m.record(userID, response, pct, listing.ListingPrice)
	return response
}

func (m *Manager) record(userID string, response types.OfferResponse, offerPct, listingPrice float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[userID] = append(m.history[userID], offerRecord{response: response, offerPct: offerPct, listingPrice: listingPrice, at: time.Now()})
}

func acceptanceThreshold(settings types.BestOfferSettings, listing types.ListingSnapshot) float64 {
	base := settings.FinalThreshold + settings.ProfitVsSpeed*(settings.InitialThreshold-settings.FinalThreshold)

	if settings.TimeDecayEnabled && settings.TimeDecayDays > 0 && listing.DaysListed > settings.TimeDecayDays {
		excess := listing.DaysListed - settings.TimeDecayDays
		if excess > settings.TimeDecayDays {
			excess = settings.TimeDecayDays
		}
		decay := 1 - 0.15*(float64(excess)/float64(settings.TimeDecayDays))
		if decay < 0.85 {
			decay = 0.85
		}
		base *= decay
	}

	if settings.HighInventoryThreshold > 0 && listing.CurrentInventory >= settings.HighInventoryThreshold {
		base *= 1 - settings.HighInventoryDiscountBonus
	}

	base *= engagementFactor(listing)

	minForProfit := 0.0
	if listing.ListingPrice > 0 {
		minForProfit = (listing.CostBasis * (1 + settings.MinProfitMargin)) / listing.ListingPrice
	}
	maxDiscountFloor := 1 - settings.MaxDiscountPct

	threshold := math.Max(base, math.Max(minForProfit, maxDiscountFloor))
	return math.Min(1.0, threshold)
}

func engagementFactor(listing types.ListingSnapshot) float64 {
	days := float64(listing.DaysListed)
	if days < 1 {
		days = 1
	}
	viewsPerDay := float64(listing.Views) / days
	watchersPerDay := float64(listing.Watchers) / days

	switch {
	case viewsPerDay < lowViewsPerDay && watchersPerDay < lowWatchersPerDay:
		return lowEngagement
	case viewsPerDay > highViewsPerDay || watchersPerDay > highWatchersPerDay:
		return highEngagement
	default:
		return normalEngagement
	}
}

func roundCounterOffer(amount, listingPrice float64) float64 {
	var rounded float64
	if amount < counterRoundingCutoverUSD {
		rounded = math.Round(amount*2) / 2
	} else {
		rounded = math.Round(amount)
	}
	return math.Min(rounded, listingPrice)
}

// OfferStatistics aggregates the in-memory offer history recorded for
// userID over the trailing windowDays.
func (m *Manager) OfferStatistics(userID string, windowDays int) Stats {
	cutoff := time.Now().AddDate(0, 0, -windowDays)

	m.mu.RLock()
	records := m.history[userID]
	m.mu.RUnlock()

	var stats Stats
	var acceptedPctSum float64
	for _, rec := range records {
		if rec.at.Before(cutoff) {
			continue
		}
		stats.TotalOffers++
		switch rec.response.Action {
		case types.OfferAccept:
			stats.Accepted++
			acceptedPctSum += rec.offerPct
			stats.TotalRevenueUSD += rec.offerPct * rec.listingPrice
		case types.OfferDecline:
			stats.Declined++
		case types.OfferCounter:
			stats.Countered++
		}
	}
	if stats.TotalOffers > 0 {
		stats.AcceptanceRate = float64(stats.Accepted) / float64(stats.TotalOffers)
	}
	if stats.Accepted > 0 {
		stats.AverageAcceptedPct = acceptedPctSum / float64(stats.Accepted)
	}
	return stats
}
