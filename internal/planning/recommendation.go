package planning

import (
	"fmt"
	"math"
	"sort"
	"time"
)

type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyNormal   Urgency = "normal"
)

type RecommendationType string

const (
	RecStockOut    RecommendationType = "STOCK_OUT"
	RecCriticalLow RecommendationType = "CRITICAL_LOW"
	RecReorderNow  RecommendationType = "REORDER_NOW"
	RecLowSupply   RecommendationType = "LOW_SUPPLY"
	RecExpiryRisk  RecommendationType = "EXPIRY_RISK"
	RecExcessStock RecommendationType = "EXCESS_STOCK"
	RecOverstock   RecommendationType = "OVERSTOCK"
	RecOptimal     RecommendationType = "OPTIMAL"
)

var urgencyWeights = map[Urgency]int{
	UrgencyCritical: 100,
	UrgencyUrgent:   50,
	UrgencyNormal:   10,
}

var typeWeights = map[RecommendationType]int{
	RecStockOut:    50,
	RecCriticalLow: 40,
	RecReorderNow:  30,
	RecLowSupply:   25,
	RecExpiryRisk:  20,
	RecExcessStock: 5,
	RecOverstock:   3,
	RecOptimal:     1,
}

const (
	TrailingDemandDays = 30
	lowSupplyDays      = 7
	overstockDays      = 90
	expiryHorizonDays  = 30
	excessMultiple     = 3
	criticalShare      = 0.5
)

// StockSignal is the snapshot a recommendation is computed from.
type StockSignal struct {
	ProductID     int64
	CurrentStock  float64
	ReorderLevel  float64
	DailyDemand   float64
	NearestExpiry *time.Time
	AsOf          time.Time
}

type Recommendation struct {
	ProductID     int64              `json:"product_id"`
	Urgency       Urgency            `json:"urgency"`
	Type          RecommendationType `json:"recommendation_type"`
	Action        string             `json:"action"`
	Reason        string             `json:"reason"`
	PriorityScore int                `json:"priority_score"`
	CurrentStock  float64            `json:"current_stock"`
	ReorderLevel  float64            `json:"reorder_level"`
	DailyDemand   float64            `json:"daily_demand"`
	// DaysOfSupply is 0 when there is no demand to consume the stock.
	DaysOfSupply  float64    `json:"days_of_supply"`
	NearestExpiry *time.Time `json:"nearest_expiry,omitempty"`
}

// DailyDemandFromTrailing converts a trailing 30-day total into a daily rate.
func DailyDemandFromTrailing(total float64) float64 {
	return total / TrailingDemandDays
}

// DaysOfSupply is stock divided by daily demand, +Inf when demand is not positive.
func DaysOfSupply(stock, dailyDemand float64) float64 {
	if dailyDemand <= 0 {
		return math.Inf(1)
	}
	return stock / dailyDemand
}

// RankRecommendation walks the decision cascade and returns the first matching
// recommendation with its priority score.
func RankRecommendation(s StockSignal) Recommendation {
	dos := DaysOfSupply(s.CurrentStock, s.DailyDemand)

	rec := Recommendation{
		ProductID:     s.ProductID,
		CurrentStock:  s.CurrentStock,
		ReorderLevel:  s.ReorderLevel,
		DailyDemand:   RoundTo(s.DailyDemand, 2),
		NearestExpiry: s.NearestExpiry,
	}
	if !math.IsInf(dos, 1) {
		rec.DaysOfSupply = RoundTo(dos, 1)
	}

	switch {
	case s.CurrentStock <= 0:
		rec.Urgency, rec.Type = UrgencyCritical, RecStockOut
		rec.Action = "Emergency procurement required"
		rec.Reason = "Product is out of stock"
	case s.CurrentStock <= s.ReorderLevel*criticalShare:
		rec.Urgency, rec.Type = UrgencyCritical, RecCriticalLow
		rec.Action = fmt.Sprintf("Order %.0f units immediately", math.Max(100, s.ReorderLevel*2))
		rec.Reason = fmt.Sprintf("Stock (%.0f) is critically low, below 50%% of reorder level (%.0f)", s.CurrentStock, s.ReorderLevel)
	case s.CurrentStock <= s.ReorderLevel:
		rec.Urgency, rec.Type = UrgencyUrgent, RecReorderNow
		rec.Action = fmt.Sprintf("Order %.0f units", math.Max(50, s.ReorderLevel))
		rec.Reason = fmt.Sprintf("Stock (%.0f) is at or below reorder level (%.0f)", s.CurrentStock, s.ReorderLevel)
	case dos < lowSupplyDays:
		rec.Urgency, rec.Type = UrgencyUrgent, RecLowSupply
		rec.Action = fmt.Sprintf("Review demand and consider ordering %d units", int(s.DailyDemand*14))
		rec.Reason = fmt.Sprintf("Only %.1f days of supply remaining", dos)
	case expiresWithin(s.NearestExpiry, s.AsOf, expiryHorizonDays):
		rec.Urgency, rec.Type = UrgencyUrgent, RecExpiryRisk
		rec.Action = "Implement promotion or markdown to move expiring stock"
		rec.Reason = fmt.Sprintf("Stock expires on %s", s.NearestExpiry.Format("2006-01-02"))
	case s.CurrentStock > s.ReorderLevel*excessMultiple:
		rec.Urgency, rec.Type = UrgencyNormal, RecExcessStock
		rec.Action = "Review ordering patterns and consider reducing orders"
		rec.Reason = fmt.Sprintf("Stock (%.0f) is more than 3x reorder level (%.0f)", s.CurrentStock, s.ReorderLevel)
	case dos > overstockDays:
		rec.Urgency, rec.Type = UrgencyNormal, RecOverstock
		rec.Action = "Consider reducing inventory levels"
		rec.Reason = fmt.Sprintf("%.1f days of supply exceeds 90 days", dos)
	default:
		rec.Urgency, rec.Type = UrgencyNormal, RecOptimal
		rec.Action = "No action needed"
		rec.Reason = "Stock levels are optimal"
	}

	rec.PriorityScore = urgencyWeights[rec.Urgency] + typeWeights[rec.Type]
	return rec
}

func expiresWithin(expiry *time.Time, asOf time.Time, days int) bool {
	if expiry == nil {
		return false
	}
	return !civilDay(*expiry).After(civilDay(asOf).AddDate(0, 0, days))
}

// SortRecommendations orders by descending priority score, keeping input order on ties.
func SortRecommendations(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].PriorityScore > recs[j].PriorityScore
	})
}

type RecommendationSummary struct {
	Total     int                        `json:"total_recommendations"`
	ByUrgency map[Urgency]int            `json:"by_urgency"`
	ByType    map[RecommendationType]int `json:"by_type"`
}

func SummarizeRecommendations(recs []Recommendation) RecommendationSummary {
	s := RecommendationSummary{
		Total: len(recs),
		ByUrgency: map[Urgency]int{
			UrgencyCritical: 0,
			UrgencyUrgent:   0,
			UrgencyNormal:   0,
		},
		ByType: make(map[RecommendationType]int),
	}
	for _, r := range recs {
		s.ByUrgency[r.Urgency]++
		s.ByType[r.Type]++
	}
	return s
}
