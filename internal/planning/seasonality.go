package planning

import (
	"time"
)

// MonthlyObservation is one month's demand and revenue.
type MonthlyObservation struct {
	Month    time.Time
	Quantity float64
	Revenue  float64
}

type MonthPattern struct {
	Month         int     `json:"month"`
	MonthName     string  `json:"month_name"`
	AvgQuantity   float64 `json:"avg_quantity"`
	AvgRevenue    float64 `json:"avg_revenue"`
	QuantityIndex float64 `json:"quantity_index"`
	RevenueIndex  float64 `json:"revenue_index"`
	DataPoints    int     `json:"data_points"`
}

type SeasonalProfile struct {
	SeasonalityCoefficient float64        `json:"seasonality_coefficient"`
	PeakMonth              string         `json:"peak_season_month"`
	LowMonth               string         `json:"low_season_month"`
	AvgMonthlyQuantity     float64        `json:"overall_avg_monthly_quantity"`
	AvgMonthlyRevenue      float64        `json:"overall_avg_monthly_revenue"`
	Months                 []MonthPattern `json:"monthly_patterns"`
}

// MonthlySeasonalIndices averages observations per calendar month and expresses
// each month as a percentage of the average month. Months without data get a
// zero index. ok is false when there are no observations.
func MonthlySeasonalIndices(obs []MonthlyObservation) (profile SeasonalProfile, ok bool) {
	var qty, rev [12][]float64
	for _, o := range obs {
		m := int(o.Month.Month()) - 1
		qty[m] = append(qty[m], o.Quantity)
		rev[m] = append(rev[m], o.Revenue)
	}

	var avgQty, avgRev [12]float64
	var totalQty, totalRev float64
	monthsWithData := 0
	for m := 0; m < 12; m++ {
		if len(qty[m]) == 0 {
			continue
		}
		avgQty[m] = Mean(qty[m])
		avgRev[m] = Mean(rev[m])
		totalQty += avgQty[m]
		totalRev += avgRev[m]
		monthsWithData++
	}
	if monthsWithData == 0 {
		return SeasonalProfile{}, false
	}

	overallQty := totalQty / float64(monthsWithData)
	overallRev := totalRev / float64(monthsWithData)

	profile.AvgMonthlyQuantity = RoundTo(overallQty, 2)
	profile.AvgMonthlyRevenue = RoundTo(overallRev, 2)
	profile.Months = make([]MonthPattern, 12)

	var indices []float64
	peak, low := -1, -1
	for m := 0; m < 12; m++ {
		p := MonthPattern{
			Month:      m + 1,
			MonthName:  time.Month(m + 1).String(),
			DataPoints: len(qty[m]),
		}
		if p.DataPoints > 0 {
			p.AvgQuantity = RoundTo(avgQty[m], 2)
			p.AvgRevenue = RoundTo(avgRev[m], 2)
			if overallQty > 0 {
				p.QuantityIndex = RoundTo(avgQty[m]/overallQty*100, 1)
			}
			if overallRev > 0 {
				p.RevenueIndex = RoundTo(avgRev[m]/overallRev*100, 1)
			}
			indices = append(indices, p.QuantityIndex)
			if peak < 0 || p.QuantityIndex > profile.Months[peak].QuantityIndex {
				peak = m
			}
			if low < 0 || p.QuantityIndex < profile.Months[low].QuantityIndex {
				low = m
			}
		}
		profile.Months[m] = p
	}

	profile.PeakMonth = profile.Months[peak].MonthName
	profile.LowMonth = profile.Months[low].MonthName
	if mean := Mean(indices); mean > 0 {
		profile.SeasonalityCoefficient = RoundTo(PopulationStdDev(indices)/mean*100, 2)
	}
	return profile, true
}
