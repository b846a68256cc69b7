package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the subset of the product master used by planning.
type Product struct {
	ID           int64           `json:"id" db:"id"`
	Code         string          `json:"code" db:"code"`
	Name         string          `json:"name" db:"name"`
	Status       string          `json:"status" db:"status"`
	CostPrice    decimal.Decimal `json:"cost_price" db:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price" db:"selling_price"`
	ReorderLevel float64         `json:"reorder_level" db:"reorder_level"`
	LeadTimeDays int             `json:"lead_time_days" db:"lead_time_days"`
}

// DemandPoint is one month of sold quantity for a product. Months without
// sales are absent rather than zero.
type DemandPoint struct {
	Period   time.Time       `json:"period" db:"period"`
	Quantity float64         `json:"quantity" db:"quantity"`
	Revenue  decimal.Decimal `json:"revenue" db:"revenue"`
}

// DailyDemand is one product's sold quantity on one day.
type DailyDemand struct {
	ProductID int64     `json:"product_id" db:"product_id"`
	Day       time.Time `json:"day" db:"day"`
	Quantity  float64   `json:"quantity" db:"quantity"`
}

// ProductRevenue is one product's revenue over an analysis window.
type ProductRevenue struct {
	ProductID int64           `json:"product_id" db:"product_id"`
	Revenue   decimal.Decimal `json:"revenue" db:"revenue"`
}

// ProductSales aggregates sales and cost per product over a window.
type ProductSales struct {
	ProductID int64           `json:"product_id" db:"product_id"`
	Quantity  float64         `json:"quantity" db:"quantity"`
	Revenue   decimal.Decimal `json:"revenue" db:"revenue"`
	Cost      decimal.Decimal `json:"cost" db:"cost"`
	AvgPrice  decimal.Decimal `json:"avg_price" db:"avg_price"`
}

// PeriodSales totals all sales in a window.
type PeriodSales struct {
	Quantity     float64         `json:"quantity" db:"quantity"`
	Revenue      decimal.Decimal `json:"revenue" db:"revenue"`
	Transactions int             `json:"transactions" db:"transactions"`
}

// TrailingDemand is a product's sold quantity since a cut-off date.
type TrailingDemand struct {
	ProductID int64   `json:"product_id" db:"product_id"`
	Quantity  float64 `json:"quantity" db:"quantity"`
}

// StockPosition is a product's on-hand stock with its replenishment settings.
type StockPosition struct {
	ProductID     int64           `json:"product_id" db:"product_id"`
	ProductName   string          `json:"product_name" db:"product_name"`
	CurrentStock  float64         `json:"current_stock" db:"current_stock"`
	ReorderLevel  float64         `json:"reorder_level" db:"reorder_level"`
	LeadTimeDays  int             `json:"lead_time_days" db:"lead_time_days"`
	UnitCost      decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	NearestExpiry *time.Time      `json:"nearest_expiry,omitempty" db:"nearest_expiry"`
}
