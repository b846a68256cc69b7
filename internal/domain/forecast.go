package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	ForecastStatusActive   = "active"
	ForecastStatusInactive = "inactive"
)

// ForecastParameters is stored as jsonb next to each forecast.
type ForecastParameters map[string]float64

func (p ForecastParameters) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func (p *ForecastParameters) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported forecast parameters type %T", src)
	}
	return json.Unmarshal(raw, p)
}

// DemandForecast is a persisted monthly forecast. Quantity includes any
// marketing adjustment; BaselineQuantity is the statistical forecast alone.
type DemandForecast struct {
	ID               int64              `json:"id" db:"id"`
	ProductID        int64              `json:"product_id" db:"product_id"`
	Period           time.Time          `json:"forecast_period" db:"forecast_period"`
	Quantity         float64            `json:"forecast_quantity" db:"forecast_quantity"`
	BaselineQuantity float64            `json:"baseline_quantity" db:"baseline_quantity"`
	LowerBound       *float64           `json:"lower_bound,omitempty" db:"lower_bound"`
	UpperBound       *float64           `json:"upper_bound,omitempty" db:"upper_bound"`
	Method           string             `json:"method" db:"method"`
	Parameters       ForecastParameters `json:"method_parameters" db:"method_parameters"`
	ConfidenceLevel  float64            `json:"confidence_level" db:"confidence_level"`
	Status           string             `json:"status" db:"status"`
	Notes            string             `json:"notes" db:"notes"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
}

// ForecastFilter narrows forecast listings. Zero values mean no restriction.
type ForecastFilter struct {
	ProductIDs []int64    `json:"product_ids"`
	From       *time.Time `json:"from"`
	To         *time.Time `json:"to"`
	Method     string     `json:"method"`
	Status     string     `json:"status"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}

// ForecastActualRow joins a forecast with the quantity actually sold in its month.
type ForecastActualRow struct {
	ForecastID     int64     `db:"forecast_id"`
	ProductID      int64     `db:"product_id"`
	Period         time.Time `db:"forecast_period"`
	Method         string    `db:"method"`
	Forecast       float64   `db:"forecast_quantity"`
	ActualQuantity float64   `db:"actual_quantity"`
}
