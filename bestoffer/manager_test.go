package bestoffer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipsync/fabric/types"
)

func balancedSettings() types.BestOfferSettings {
	return types.BestOfferSettings{
		ProfitVsSpeed:              0.5,
		MinProfitMargin:            0.15,
		MaxDiscountPct:             0.25,
		AutoAccept:                 true,
		AutoCounter:                true,
		TimeDecayEnabled:           true,
		InitialThreshold:           0.90,
		TimeDecayDays:              7,
		FinalThreshold:             0.70,
		HighInventoryThreshold:     10,
		HighInventoryDiscountBonus: 0.05,
	}
}

func TestConfigureUserSettings_RejectsOutOfRangePercentage(t *testing.T) {
	m := New(nil, nil)
	settings := balancedSettings()
	settings.ProfitVsSpeed = 1.5

	err := m.ConfigureUserSettings(context.Background(), "u1", settings)
	require.Error(t, err)
	assert.Equal(t, types.ErrValidation, types.CodeOf(err))
}

func TestConfigureUserSettings_RejectsInitialBelowFinal(t *testing.T) {
	m := New(nil, nil)
	settings := balancedSettings()
	settings.InitialThreshold = 0.5
	settings.FinalThreshold = 0.7

	err := m.ConfigureUserSettings(context.Background(), "u1", settings)
	require.Error(t, err)
	assert.Equal(t, types.ErrValidation, types.CodeOf(err))
}

func TestProcessIncomingOffer_IgnoresWithoutConfiguredSettings(t *testing.T) {
	m := New(nil, nil)
	resp := m.ProcessIncomingOffer(context.Background(), "unknown", types.Offer{OfferAmount: 80, ListingPrice: 100}, types.ListingSnapshot{ListingPrice: 100})
	assert.Equal(t, types.OfferIgnore, resp.Action)
	assert.Equal(t, 0.0, resp.Confidence)
}

func TestProcessIncomingOffer_AcceptsOfferMeetingThreshold(t *testing.T) {
	m := New(nil, nil)
	require.NoError(t, m.ConfigureUserSettings(context.Background(), "u1", balancedSettings()))

	resp := m.ProcessIncomingOffer(context.Background(), "u1", types.Offer{OfferAmount: 95, ListingPrice: 100}, types.ListingSnapshot{
		ListingPrice: 100, CostBasis: 40, DaysListed: 2, Views: 10, Watchers: 2,
	})
	assert.Equal(t, types.OfferAccept, resp.Action)
	assert.Equal(t, 0.9, resp.Confidence)
}

func TestProcessIncomingOffer_CountersBelowThresholdAboveFloor(t *testing.T) {
	m := New(nil, nil)
	require.NoError(t, m.ConfigureUserSettings(context.Background(), "u1", balancedSettings()))

	resp := m.ProcessIncomingOffer(context.Background(), "u1", types.Offer{OfferAmount: 75, ListingPrice: 100}, types.ListingSnapshot{
		ListingPrice: 100, CostBasis: 40, DaysListed: 2, Views: 10, Watchers: 2,
	})
	assert.Equal(t, types.OfferCounter, resp.Action)
	assert.True(t, resp.HasCounter)
	assert.Equal(t, 0.8, resp.Confidence)
	assert.LessOrEqual(t, resp.CounterAmount, 100.0)
}

func TestProcessIncomingOffer_DeclinesFarBelowThreshold(t *testing.T) {
	m := New(nil, nil)
	require.NoError(t, m.ConfigureUserSettings(context.Background(), "u1", balancedSettings()))

	resp := m.ProcessIncomingOffer(context.Background(), "u1", types.Offer{OfferAmount: 50, ListingPrice: 100}, types.ListingSnapshot{
		ListingPrice: 100, CostBasis: 40, DaysListed: 2, Views: 10, Watchers: 2,
	})
	assert.Equal(t, types.OfferDecline, resp.Action)
	assert.Equal(t, 0.7, resp.Confidence)
}

func TestProcessIncomingOffer_TimeDecayLowersThresholdOverTime(t *testing.T) {
	m := New(nil, nil)
	require.NoError(t, m.ConfigureUserSettings(context.Background(), "u1", balancedSettings()))

	fresh := m.ProcessIncomingOffer(context.Background(), "u1", types.Offer{OfferAmount: 75, ListingPrice: 100}, types.ListingSnapshot{
		ListingPrice: 100, CostBasis: 40, DaysListed: 1, Views: 10, Watchers: 2,
	})
	aged := m.ProcessIncomingOffer(context.Background(), "u1", types.Offer{OfferAmount: 75, ListingPrice: 100}, types.ListingSnapshot{
		ListingPrice: 100, CostBasis: 40, DaysListed: 20, Views: 10, Watchers: 2,
	})
	assert.Equal(t, types.OfferCounter, fresh.Action, "undecayed threshold of 0.80 only counters a 75% offer")
	assert.Equal(t, types.OfferAccept, aged.Action, "decayed threshold should now accept the same 75% offer")
}

func TestProcessIncomingOffer_HighInventoryDiscountsThreshold(t *testing.T) {
	m := New(nil, nil)
	require.NoError(t, m.ConfigureUserSettings(context.Background(), "u1", balancedSettings()))

	resp := m.ProcessIncomingOffer(context.Background(), "u1", types.Offer{OfferAmount: 76, ListingPrice: 100}, types.ListingSnapshot{
		ListingPrice: 100, CostBasis: 40, DaysListed: 2, Views: 10, Watchers: 2, CurrentInventory: 15,
	})
	assert.NotEqual(t, types.OfferDecline, resp.Action)
}

func TestProcessIncomingOffer_NeverThresholdsAboveOne(t *testing.T) {
	m := New(nil, nil)
	settings := balancedSettings()
	settings.ProfitVsSpeed = 1.0
	settings.InitialThreshold = 1.0
	settings.FinalThreshold = 1.0
	require.NoError(t, m.ConfigureUserSettings(context.Background(), "u1", settings))

	resp := m.ProcessIncomingOffer(context.Background(), "u1", types.Offer{OfferAmount: 100, ListingPrice: 100}, types.ListingSnapshot{
		ListingPrice: 100, CostBasis: 90, DaysListed: 1, Views: 1, Watchers: 0,
	})
	assert.Equal(t, types.OfferAccept, resp.Action)
}

func TestOfferStatistics_AggregatesRecordedDecisions(t *testing.T) {
	m := New(nil, nil)
	require.NoError(t, m.ConfigureUserSettings(context.Background(), "u1", balancedSettings()))

	m.ProcessIncomingOffer(context.Background(), "u1", types.Offer{OfferAmount: 95, ListingPrice: 100}, types.ListingSnapshot{ListingPrice: 100, CostBasis: 40, DaysListed: 2, Views: 10, Watchers: 2})
	m.ProcessIncomingOffer(context.Background(), "u1", types.Offer{OfferAmount: 50, ListingPrice: 100}, types.ListingSnapshot{ListingPrice: 100, CostBasis: 40, DaysListed: 2, Views: 10, Watchers: 2})

	stats := m.OfferStatistics("u1", 30)
	assert.Equal(t, 2, stats.TotalOffers)
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 1, stats.Declined)
	assert.InDelta(t, 0.5, stats.AcceptanceRate, 0.001)
}

func TestOfferStatistics_EmptyForUnknownUser(t *testing.T) {
	m := New(nil, nil)
	stats := m.OfferStatistics("unknown", 30)
	assert.Equal(t, 0, stats.TotalOffers)
}
