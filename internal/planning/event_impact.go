package planning

import (
	"context"
	"fmt"
	"time"
)

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the number of calendar days covered, inclusive of both ends.
func (w Window) Days() int {
	return daysBetween(w.Start, w.End) + 1
}

// ImpactWindows holds the baseline, event and follow-up ranges of a campaign.
type ImpactWindows struct {
	Pre          Window `json:"pre"`
	During       Window `json:"during"`
	Post         Window `json:"post"`
	DurationDays int    `json:"duration_days"`
}

// EventWindows places baseline and follow-up windows of the event's own length
// immediately before and after it.
func EventWindows(start, end time.Time) ImpactWindows {
	start, end = civilDay(start), civilDay(end)
	duration := daysBetween(start, end) + 1

	return ImpactWindows{
		Pre: Window{
			Start: start.AddDate(0, 0, -duration),
			End:   start.AddDate(0, 0, -1),
		},
		During: Window{Start: start, End: end},
		Post: Window{
			Start: end.AddDate(0, 0, 1),
			End:   end.AddDate(0, 0, duration),
		},
		DurationDays: duration,
	}
}

// PeriodMetrics are the sales totals of one window.
type PeriodMetrics struct {
	Quantity     float64 `json:"total_quantity"`
	Revenue      float64 `json:"total_revenue"`
	Transactions int     `json:"transaction_count"`
}

type EventImpactResult struct {
	Windows           ImpactWindows `json:"windows"`
	Pre               PeriodMetrics `json:"pre_event"`
	During            PeriodMetrics `json:"during_event"`
	Post              PeriodMetrics `json:"post_event"`
	QuantityUplift    float64       `json:"quantity_uplift"`
	RevenueUplift     float64       `json:"revenue_uplift"`
	QuantityUpliftPct float64       `json:"quantity_uplift_percentage"`
	RevenueUpliftPct  float64       `json:"revenue_uplift_percentage"`
	ROI               *float64      `json:"roi_percentage,omitempty"`
	CostPerUnitSold   *float64      `json:"cost_per_unit_sold,omitempty"`
}

// ComputeEventImpact compares the event window against its baseline. Uplift
// percentages are 0 when the baseline is 0. ROI is reported only for a
// positive budget.
func ComputeEventImpact(pre, during, post PeriodMetrics, budget *float64) EventImpactResult {
	result := EventImpactResult{
		Pre:               pre,
		During:            during,
		Post:              post,
		QuantityUplift:    RoundTo(during.Quantity-pre.Quantity, 2),
		RevenueUplift:     RoundTo(during.Revenue-pre.Revenue, 2),
		QuantityUpliftPct: RoundTo(upliftPct(pre.Quantity, during.Quantity), 2),
		RevenueUpliftPct:  RoundTo(upliftPct(pre.Revenue, during.Revenue), 2),
	}

	if budget != nil && *budget > 0 {
		roi := RoundTo((during.Revenue-pre.Revenue-*budget) / *budget * 100, 2)
		result.ROI = &roi

		cost := 0.0
		if during.Quantity > 0 {
			cost = RoundTo(*budget/during.Quantity, 2)
		}
		result.CostPerUnitSold = &cost
	}
	return result
}

func upliftPct(baseline, current float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (current - baseline) / baseline * 100
}

// EventSpec describes the campaign to analyse. An empty CustomerIDs means all
// customers.
type EventSpec struct {
	Start       time.Time
	End         time.Time
	CustomerIDs []int64
	Budget      *float64
}

// SalesFetcher returns the sales totals of a window, optionally restricted to customers.
type SalesFetcher func(ctx context.Context, w Window, customerIDs []int64) (PeriodMetrics, error)

// AnalyzeEventImpact fetches the three windows through fetch and computes the impact.
func AnalyzeEventImpact(ctx context.Context, event EventSpec, fetch SalesFetcher) (EventImpactResult, error) {
	if civilDay(event.End).Before(civilDay(event.Start)) {
		return EventImpactResult{}, fmt.Errorf("%w: event ends before it starts", ErrInvalidParameter)
	}

	windows := EventWindows(event.Start, event.End)

	pre, err := fetch(ctx, windows.Pre, event.CustomerIDs)
	if err != nil {
		return EventImpactResult{}, fmt.Errorf("fetch pre-event sales: %w", err)
	}
	during, err := fetch(ctx, windows.During, event.CustomerIDs)
	if err != nil {
		return EventImpactResult{}, fmt.Errorf("fetch event sales: %w", err)
	}
	post, err := fetch(ctx, windows.Post, event.CustomerIDs)
	if err != nil {
		return EventImpactResult{}, fmt.Errorf("fetch post-event sales: %w", err)
	}

	result := ComputeEventImpact(pre, during, post, event.Budget)
	result.Windows = windows
	return result, nil
}

// ImpactSummary aggregates several event analyses.
type ImpactSummary struct {
	TotalEvents          int     `json:"total_events"`
	TotalBudget          float64 `json:"total_budget"`
	TotalRevenueUplift   float64 `json:"total_revenue_uplift"`
	OverallROI           float64 `json:"overall_roi_percentage"`
	AverageRevenueUplift float64 `json:"average_revenue_uplift_percentage"`
}

// SummarizeImpacts totals budgets and uplifts. budgets is parallel to results;
// a nil entry counts as no budget.
func SummarizeImpacts(results []EventImpactResult, budgets []*float64) ImpactSummary {
	s := ImpactSummary{TotalEvents: len(results)}
	if len(results) == 0 {
		return s
	}

	var pctSum float64
	for i, r := range results {
		s.TotalRevenueUplift += r.RevenueUplift
		pctSum += r.RevenueUpliftPct
		if i < len(budgets) && budgets[i] != nil {
			s.TotalBudget += *budgets[i]
		}
	}

	if s.TotalBudget > 0 {
		s.OverallROI = RoundTo((s.TotalRevenueUplift-s.TotalBudget)/s.TotalBudget*100, 2)
	}
	s.TotalBudget = RoundTo(s.TotalBudget, 2)
	s.TotalRevenueUplift = RoundTo(s.TotalRevenueUplift, 2)
	s.AverageRevenueUplift = RoundTo(pctSum/float64(len(results)), 2)
	return s
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(civilDay(to).Sub(civilDay(from)).Hours() / 24)
}
