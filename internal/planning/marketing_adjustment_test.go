package planning

import (
	"testing"
	"time"
)

func TestMarketingAdjustment(t *testing.T) {
	march := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	fullPromo := ScheduledEvent{Name: "spring sale", Type: EventPromotion, Start: day("2024-03-01"), End: day("2024-03-31")}
	tradeShow := ScheduledEvent{Name: "expo", Type: EventTradeShow, Start: day("2024-03-01"), End: day("2024-03-10")}
	april := ScheduledEvent{Name: "april launch", Type: EventNewProductLaunch, Start: day("2024-04-02"), End: day("2024-04-20")}

	tests := []struct {
		name       string
		events     []ScheduledEvent
		wantFactor float64
		wantEvents int
	}{
		{"no events", nil, 1, 0},
		{"full month promotion", []ScheduledEvent{fullPromo}, 1.2, 1},
		{"promotion and partial trade show", []ScheduledEvent{fullPromo, tradeShow}, 1.2 * (1 + 0.1*10/31), 2},
		{"event in another month", []ScheduledEvent{april}, 1, 0},
		{"unknown type", []ScheduledEvent{{Name: "x", Type: "webinar", Start: day("2024-03-01"), End: day("2024-03-31")}}, 1.15, 1},
		{"event spanning month boundary", []ScheduledEvent{{Type: EventSeasonalCampaign, Start: day("2024-02-20"), End: day("2024-04-10")}}, 1.3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adj := MarketingAdjustment(tt.events, march)
			if !approxEqual(adj.Factor, tt.wantFactor, 1e-9) {
				t.Errorf("Factor = %v, want %v", adj.Factor, tt.wantFactor)
			}
			if len(adj.Events) != tt.wantEvents {
				t.Errorf("got %d contributing events, want %d", len(adj.Events), tt.wantEvents)
			}
		})
	}
}

func TestMonthBounds(t *testing.T) {
	first, last := MonthBounds(time.Date(2024, time.February, 17, 13, 0, 0, 0, time.UTC))
	if !first.Equal(day("2024-02-01")) || !last.Equal(day("2024-02-29")) {
		t.Errorf("MonthBounds = %s..%s", first, last)
	}
}

func TestEventUpliftFactor(t *testing.T) {
	tests := map[EventType]float64{
		EventPromotion:        1.2,
		EventNewProductLaunch: 1.5,
		EventSeasonalCampaign: 1.3,
		EventTradeShow:        1.1,
		EventOther:            1.15,
	}
	for typ, want := range tests {
		if got := EventUpliftFactor(typ); got != want {
			t.Errorf("EventUpliftFactor(%s) = %v, want %v", typ, got, want)
		}
	}
}
