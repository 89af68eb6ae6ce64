// Package cost is the Cost Tracker (C3): per-call cost accounting
// against daily/monthly budgets with threshold alerting. Budgets are
// per-process, not distributed.
package cost

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flipsync/fabric/types"
)

// AlertHandler is invoked synchronously under the tracker's critical
// section when a threshold first crosses in its window. Handlers must
// not block or call back into the tracker.
type AlertHandler func(alert Alert)

// Alert reports that spend crossed threshold within its window.
type Alert struct {
	Window    string // "day" or "month"
	Threshold float64
	Spent     float64
	Limit     float64
	FiredAt   time.Time
}

// Stats is a point-in-time snapshot of tracker state.
type Stats struct {
	SpentDay        float64
	SpentMonth      float64
	DailyLimitUSD   float64
	MonthlyLimitUSD float64
	ByCategory      map[types.CostCategory]float64
	ByModel         map[string]float64
	EntryCount      int
}

// Recommendation is a cost-optimization suggestion surfaced by
// GetRecommendations when one cost category dominates daily spend.
type Recommendation struct {
	Category            types.CostCategory
	Suggestion          string
	PotentialSavingsUSD float64
}

// Tracker implements C3. The zero value is not usable; construct with
// NewTracker.
type Tracker struct {
	mu sync.Mutex

	dailyLimitUSD   float64
	monthlyLimitUSD float64
	thresholds      []float64

	currentDay   string
	currentMonth string
	spentDay     float64
	spentMonth   float64

	alertsFiredDay   map[float64]bool
	alertsFiredMonth map[float64]bool

	byCategory map[types.CostCategory]float64
	byModel    map[string]float64
	entries    []types.CostEntry

	handlers []AlertHandler
	logger   *zap.Logger
	now      func() time.Time
}

// DefaultThresholds is the default alert threshold list.
var DefaultThresholds = []float64{0.5, 0.8, 0.9, 1.0}

// NewTracker builds a Tracker with the given daily/monthly limits and
// alert thresholds (nil uses DefaultThresholds).
func NewTracker(dailyLimitUSD, monthlyLimitUSD float64, thresholds []float64, logger *zap.Logger) *Tracker {
	if thresholds == nil {
		thresholds = DefaultThresholds
	}
	sorted := append([]float64(nil), thresholds...)
	sort.Float64s(sorted)
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now()
	return &Tracker{
		dailyLimitUSD:    dailyLimitUSD,
		monthlyLimitUSD:  monthlyLimitUSD,
		thresholds:       sorted,
		currentDay:       now.Format("2006-01-02"),
		currentMonth:     now.Format("2006-01"),
		alertsFiredDay:   make(map[float64]bool),
		alertsFiredMonth: make(map[float64]bool),
		byCategory:       make(map[types.CostCategory]float64),
		byModel:          make(map[string]float64),
		logger:           logger.With(zap.String("component", "cost.tracker")),
		now:              time.Now,
	}
}

// OnAlert registers a handler invoked when a threshold first crosses.
func (t *Tracker) OnAlert(handler AlertHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, handler)
}

// Record atomically applies entry to the current day/month windows,
// resetting them first if the local-time boundary has passed, then
// fires any newly-crossed alert thresholds. Record never rejects an
// entry and never blocks the caller's LLM request.
func (t *Tracker) Record(entry types.CostEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetWindowsIfNeeded()

	if entry.CostUSD < 0 {
		entry.CostUSD = 0
	}

	t.spentDay += entry.CostUSD
	t.spentMonth += entry.CostUSD
	t.byCategory[entry.Category] += entry.CostUSD
	if entry.Model != "" {
		t.byModel[entry.Model] += entry.CostUSD
	}
	t.entries = append(t.entries, entry)

	t.fireCrossedThresholds("day", t.spentDay, t.dailyLimitUSD, t.alertsFiredDay)
	t.fireCrossedThresholds("month", t.spentMonth, t.monthlyLimitUSD, t.alertsFiredMonth)
}

func (t *Tracker) resetWindowsIfNeeded() {
	now := t.now()
	day := now.Format("2006-01-02")
	month := now.Format("2006-01")

	if day != t.currentDay {
		t.currentDay = day
		t.spentDay = 0
		t.alertsFiredDay = make(map[float64]bool)
	}
	if month != t.currentMonth {
		t.currentMonth = month
		t.spentMonth = 0
		t.alertsFiredMonth = make(map[float64]bool)
	}
}

func (t *Tracker) fireCrossedThresholds(window string, spent, limit float64, fired map[float64]bool) {
	if limit <= 0 {
		return
	}
	ratio := spent / limit
	for _, th := range t.thresholds {
		if fired[th] {
			continue
		}
		if ratio >= th {
			fired[th] = true
			alert := Alert{Window: window, Threshold: th, Spent: spent, Limit: limit, FiredAt: t.now()}
			for _, h := range t.handlers {
				h(alert)
			}
			t.logger.Info("budget threshold crossed",
				zap.String("window", window), zap.Float64("threshold", th), zap.Float64("spent", spent), zap.Float64("limit", limit))
		}
	}
}

// GetStats returns a snapshot of current tracker state.
func (t *Tracker) GetStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetWindowsIfNeeded()

	byCategory := make(map[types.CostCategory]float64, len(t.byCategory))
	for k, v := range t.byCategory {
		byCategory[k] = v
	}
	byModel := make(map[string]float64, len(t.byModel))
	for k, v := range t.byModel {
		byModel[k] = v
	}

	return Stats{
		SpentDay:        t.spentDay,
		SpentMonth:      t.spentMonth,
		DailyLimitUSD:   t.dailyLimitUSD,
		MonthlyLimitUSD: t.monthlyLimitUSD,
		ByCategory:      byCategory,
		ByModel:         byModel,
		EntryCount:      len(t.entries),
	}
}

// GetRecommendations surfaces cost-optimization suggestions when a
// single category dominates today's spend.
func (t *Tracker) GetRecommendations() []Recommendation {
	stats := t.GetStats()
	if stats.SpentDay <= 0 {
		return nil
	}

	var recs []Recommendation
	for category, spend := range stats.ByCategory {
		share := spend / stats.SpentDay
		if share >= 0.4 {
			recs = append(recs, Recommendation{
				Category:            category,
				Suggestion:          "category " + string(category) + " accounts for a large share of today's spend; consider a cheaper model or caching for this category",
				PotentialSavingsUSD: spend * 0.3,
			})
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].PotentialSavingsUSD > recs[j].PotentialSavingsUSD })
	return recs
}

// Viable reports whether estimatedCost can still be spent today without
// exceeding dailyLimitUSD. This is a pre-call viability check left to
// calling code; Record itself never rejects a spend.
func (t *Tracker) Viable(estimatedCost float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetWindowsIfNeeded()
	if t.dailyLimitUSD <= 0 {
		return true
	}
	return t.spentDay+estimatedCost <= t.dailyLimitUSD
}
