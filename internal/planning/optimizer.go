package planning

import (
	"fmt"
	"math"
)

// EOQResult holds an economic order quantity and the yearly costs it implies.
type EOQResult struct {
	EOQ                float64 `json:"eoq"`
	OrdersPerYear      float64 `json:"orders_per_year"`
	AnnualOrderingCost float64 `json:"annual_ordering_cost"`
	AnnualHoldingCost  float64 `json:"annual_holding_cost"`
	TotalAnnualCost    float64 `json:"total_annual_cost"`
}

// EconomicOrderQuantity computes sqrt(2DS/H) and the resulting ordering and
// holding costs, rounded to two decimals. Any non-positive or non-finite input
// yields the zero result.
func EconomicOrderQuantity(annualDemand, orderingCost, holdingCost float64) EOQResult {
	for _, v := range []float64{annualDemand, orderingCost, holdingCost} {
		if !isFinite(v) || v <= 0 {
			return EOQResult{}
		}
	}

	eoq := math.Sqrt(2 * annualDemand * orderingCost / holdingCost)
	orders := annualDemand / eoq
	ordering := orders * orderingCost
	holding := eoq / 2 * holdingCost

	return EOQResult{
		EOQ:                RoundTo(eoq, 2),
		OrdersPerYear:      RoundTo(orders, 2),
		AnnualOrderingCost: RoundTo(ordering, 2),
		AnnualHoldingCost:  RoundTo(holding, 2),
		TotalAnnualCost:    RoundTo(ordering+holding, 2),
	}
}

// DefaultZScore is used for service levels missing from the lookup table.
const DefaultZScore = 1.65

var serviceLevelZ = map[float64]float64{
	0.90: 1.28,
	0.95: 1.65,
	0.97: 1.88,
	0.99: 2.33,
}

// ZScore looks the service level up exactly; anything else maps to DefaultZScore.
func ZScore(serviceLevel float64) float64 {
	if z, ok := serviceLevelZ[serviceLevel]; ok {
		return z
	}
	return DefaultZScore
}

// ReorderPointResult breaks a reorder point into its demand and safety components.
type ReorderPointResult struct {
	ReorderPoint   float64 `json:"reorder_point"`
	LeadTimeDemand float64 `json:"lead_time_demand"`
	SafetyStock    float64 `json:"safety_stock"`
	ServiceLevel   float64 `json:"service_level"`
	ZScore         float64 `json:"z_score"`
}

// ReorderPoint returns lead-time demand plus z*sigma*sqrt(leadTime) safety stock.
// Negative or non-finite lead time, demand or deviation contribute nothing, so
// the result is always finite.
func ReorderPoint(leadTimeDays, dailyDemand, demandStdDev, serviceLevel float64) ReorderPointResult {
	lt := positiveOrZero(leadTimeDays)
	d := positiveOrZero(dailyDemand)
	sigma := positiveOrZero(demandStdDev)
	z := ZScore(serviceLevel)

	leadTimeDemand := d * lt
	safety := z * sigma * math.Sqrt(lt)

	return ReorderPointResult{
		ReorderPoint:   RoundTo(leadTimeDemand+safety, 2),
		LeadTimeDemand: RoundTo(leadTimeDemand, 2),
		SafetyStock:    RoundTo(safety, 2),
		ServiceLevel:   serviceLevel,
		ZScore:         z,
	}
}

type StockStatus string

const (
	StockCritical StockStatus = "CRITICAL"
	StockLow      StockStatus = "LOW"
	StockOptimal  StockStatus = "OPTIMAL"
	StockExcess   StockStatus = "EXCESS"
)

// minStockRatio sets the recommended minimum as a share of the reorder point.
const minStockRatio = 0.5

// StockPolicy is the outcome of applying a matrix strategy to a stock position.
type StockPolicy struct {
	Cell                MatrixCell  `json:"matrix_class"`
	CurrentStock        float64     `json:"current_stock"`
	ReorderPoint        float64     `json:"reorder_point"`
	EOQ                 float64     `json:"eoq"`
	RecommendedMinStock float64     `json:"recommended_min_stock"`
	RecommendedMaxStock float64     `json:"recommended_max_stock"`
	Status              StockStatus `json:"stock_status"`
	Strategy            Strategy    `json:"strategy"`
	Notes               string      `json:"notes"`
}

// ApplyStrategy derives min/max stock bands from the cell's strategy and places
// the current stock in one of them.
func ApplyStrategy(cell MatrixCell, currentStock, reorderPoint, eoq float64) StockPolicy {
	strategy := StrategyFor(cell)
	maxStock := reorderPoint + eoq*strategy.MaxStockMultiplier
	minStock := reorderPoint * minStockRatio

	return StockPolicy{
		Cell:                cell,
		CurrentStock:        currentStock,
		ReorderPoint:        reorderPoint,
		EOQ:                 eoq,
		RecommendedMinStock: RoundTo(minStock, 2),
		RecommendedMaxStock: RoundTo(maxStock, 2),
		Status:              classifyStock(currentStock, minStock, reorderPoint, maxStock),
		Strategy:            strategy,
		Notes:               fmt.Sprintf("ABC-XYZ class %s strategy", cell),
	}
}

func classifyStock(current, minStock, reorderPoint, maxStock float64) StockStatus {
	switch {
	case current <= minStock:
		return StockCritical
	case current <= reorderPoint:
		return StockLow
	case current <= maxStock:
		return StockOptimal
	default:
		return StockExcess
	}
}
