package planning

import "math"

type VelocityClass string

const (
	VelocityFast   VelocityClass = "FAST"
	VelocityMedium VelocityClass = "MEDIUM"
	VelocitySlow   VelocityClass = "SLOW"
)

type Velocity struct {
	ProductID     int64         `json:"product_id"`
	TotalSold     float64       `json:"total_sold_period"`
	CurrentStock  float64       `json:"current_stock"`
	TurnoverRatio float64       `json:"turnover_ratio"`
	DaysOfSupply  float64       `json:"days_of_supply"`
	AvgDailySales float64       `json:"avg_daily_sales"`
	Class         VelocityClass `json:"velocity_class"`
}

// ClassifyVelocity rates stock turnover over a period of periodDays.
// FAST needs turnover above 4 with under 30 days of supply; MEDIUM needs
// turnover of at least 1 with at most 90 days; the rest is SLOW.
func ClassifyVelocity(productID int64, totalSold, currentStock float64, periodDays int) Velocity {
	days := float64(periodDays)
	if days <= 0 {
		days = 1
	}

	var turnover, dos float64
	switch {
	case currentStock > 0:
		turnover = totalSold / currentStock
		if totalSold > 0 {
			dos = currentStock / (totalSold / days)
		} else {
			dos = math.Inf(1)
		}
	case totalSold > 0:
		turnover = math.Inf(1)
	}

	class := VelocitySlow
	switch {
	case turnover > 4 && dos < 30:
		class = VelocityFast
	case turnover >= 1 && dos <= 90:
		class = VelocityMedium
	}

	v := Velocity{
		ProductID:     productID,
		TotalSold:     totalSold,
		CurrentStock:  currentStock,
		AvgDailySales: RoundTo(totalSold/days, 2),
		Class:         class,
	}
	if !math.IsInf(turnover, 1) {
		v.TurnoverRatio = RoundTo(turnover, 2)
	}
	if !math.IsInf(dos, 1) {
		v.DaysOfSupply = RoundTo(dos, 1)
	}
	return v
}

type ProfitabilityClass string

const (
	ProfitabilityHigh   ProfitabilityClass = "HIGH"
	ProfitabilityMedium ProfitabilityClass = "MEDIUM"
	ProfitabilityLow    ProfitabilityClass = "LOW"
)

type Profitability struct {
	ProductID   int64              `json:"product_id"`
	Revenue     float64            `json:"total_revenue"`
	Cost        float64            `json:"total_cost"`
	GrossProfit float64            `json:"gross_profit"`
	MarginPct   float64            `json:"gross_margin_percentage"`
	Class       ProfitabilityClass `json:"profitability_class"`
}

// ClassifyProfitability grades gross margin: 30% and above HIGH, 15% and above MEDIUM.
func ClassifyProfitability(productID int64, revenue, cost float64) Profitability {
	profit := revenue - cost
	var margin float64
	if revenue > 0 {
		margin = profit / revenue * 100
	}

	class := ProfitabilityLow
	switch {
	case margin >= 30:
		class = ProfitabilityHigh
	case margin >= 15:
		class = ProfitabilityMedium
	}

	return Profitability{
		ProductID:   productID,
		Revenue:     RoundTo(revenue, 2),
		Cost:        RoundTo(cost, 2),
		GrossProfit: RoundTo(profit, 2),
		MarginPct:   RoundTo(margin, 2),
		Class:       class,
	}
}
