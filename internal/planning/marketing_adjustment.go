package planning

import (
	"math"
	"time"
)

type EventType string

const (
	EventPromotion        EventType = "promotion"
	EventNewProductLaunch EventType = "new_product_launch"
	EventSeasonalCampaign EventType = "seasonal_campaign"
	EventTradeShow        EventType = "trade_show"
	EventOther            EventType = "other"
)

const defaultEventFactor = 1.15

var eventFactors = map[EventType]float64{
	EventPromotion:        1.2,
	EventNewProductLaunch: 1.5,
	EventSeasonalCampaign: 1.3,
	EventTradeShow:        1.1,
}

// EventUpliftFactor is the full-month demand multiplier expected from an event type.
func EventUpliftFactor(t EventType) float64 {
	if f, ok := eventFactors[t]; ok {
		return f
	}
	return defaultEventFactor
}

// ScheduledEvent is a planned marketing activity considered by forecast adjustment.
type ScheduledEvent struct {
	Name  string    `json:"name"`
	Type  EventType `json:"event_type"`
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// EventAdjustment records one event's contribution to a month's adjustment.
type EventAdjustment struct {
	Name         string    `json:"event_name"`
	Type         EventType `json:"event_type"`
	DurationDays int       `json:"duration_days"`
	ImpactFactor float64   `json:"impact_factor"`
}

// Adjustment is the combined multiplier for one forecast month.
type Adjustment struct {
	Factor float64           `json:"adjustment_factor"`
	Events []EventAdjustment `json:"events_impact"`
}

// MonthBounds returns the first and last calendar day of the month containing t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

// MarketingAdjustment scales each event's uplift by the share of the month it
// covers and multiplies the results. Events outside the month are ignored.
func MarketingAdjustment(events []ScheduledEvent, month time.Time) Adjustment {
	monthStart, monthEnd := MonthBounds(month)
	monthDays := daysBetween(monthStart, monthEnd) + 1

	adj := Adjustment{Factor: 1}
	for _, e := range events {
		start := laterOf(civilDay(e.Start), monthStart)
		end := earlierOf(civilDay(e.End), monthEnd)
		if end.Before(start) {
			continue
		}

		duration := daysBetween(start, end) + 1
		share := math.Min(float64(duration)/float64(monthDays), 1)
		weighted := 1 + (EventUpliftFactor(e.Type)-1)*share

		adj.Factor *= weighted
		adj.Events = append(adj.Events, EventAdjustment{
			Name:         e.Name,
			Type:         e.Type,
			DurationDays: duration,
			ImpactFactor: weighted,
		})
	}
	return adj
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
