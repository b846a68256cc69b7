package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventStatusPlanned   = "planned"
	EventStatusActive    = "active"
	EventStatusCompleted = "completed"
	EventStatusCancelled = "cancelled"
)

// MarketingEvent is a campaign whose demand impact can be measured or planned for.
type MarketingEvent struct {
	ID                int64               `json:"id" db:"id"`
	CampaignName      string              `json:"campaign_name" db:"campaign_name"`
	EventType         string              `json:"event_type" db:"event_type"`
	StartDate         time.Time           `json:"start_date" db:"start_date"`
	EndDate           time.Time           `json:"end_date" db:"end_date"`
	Budget            decimal.NullDecimal `json:"budget" db:"budget"`
	TargetCustomerIDs []int64             `json:"target_customer_ids" db:"-"`
	Status            string              `json:"status" db:"status"`
}

// EventFilter narrows event listings to those overlapping [From, To].
type EventFilter struct {
	From     *time.Time
	To       *time.Time
	Statuses []string
}
