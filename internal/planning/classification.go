package planning

import (
	"sort"
	"strings"
)

type ABCClass string

const (
	ClassA ABCClass = "A"
	ClassB ABCClass = "B"
	ClassC ABCClass = "C"
)

type XYZClass string

const (
	ClassX XYZClass = "X"
	ClassY XYZClass = "Y"
	ClassZ XYZClass = "Z"
)

// Pareto and variability thresholds, in percent.
const (
	abcThresholdA = 80.0
	abcThresholdB = 95.0
	xyzThresholdX = 20.0
	xyzThresholdY = 50.0
)

// ProductRevenue is one product's total revenue over the analysis period.
type ProductRevenue struct {
	ProductID int64   `json:"product_id"`
	Revenue   float64 `json:"revenue"`
}

type ABCItem struct {
	ProductID            int64    `json:"product_id"`
	Revenue              float64  `json:"revenue"`
	RevenuePercentage    float64  `json:"revenue_percentage"`
	CumulativePercentage float64  `json:"cumulative_percentage"`
	Class                ABCClass `json:"abc_class"`
	Rank                 int      `json:"rank"`
}

// ClassifyABC ranks products by revenue, highest first, and assigns A while the
// running share of revenue stays within 80%, B within 95%, and C after that.
// Equal revenues keep their input order. A non-positive total puts every
// product in C.
func ClassifyABC(revenues []ProductRevenue) []ABCItem {
	sorted := append([]ProductRevenue(nil), revenues...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Revenue > sorted[j].Revenue
	})

	var total float64
	for _, r := range sorted {
		total += r.Revenue
	}

	items := make([]ABCItem, len(sorted))
	var cumulative float64
	for i, r := range sorted {
		item := ABCItem{
			ProductID: r.ProductID,
			Revenue:   r.Revenue,
			Rank:      i + 1,
			Class:     ClassC,
		}
		if total > 0 {
			cumulative += r.Revenue
			share := r.Revenue / total * 100
			cumPct := cumulative / total * 100
			item.RevenuePercentage = RoundTo(share, 2)
			item.CumulativePercentage = RoundTo(cumPct, 2)
			switch {
			case cumPct <= abcThresholdA:
				item.Class = ClassA
			case cumPct <= abcThresholdB:
				item.Class = ClassB
			}
		}
		items[i] = item
	}
	return items
}

// ABCClasses flattens ClassifyABC output into a product lookup.
func ABCClasses(items []ABCItem) map[int64]ABCClass {
	out := make(map[int64]ABCClass, len(items))
	for _, it := range items {
		out[it.ProductID] = it.Class
	}
	return out
}

// ProductDemand holds a product's per-period demand samples.
type ProductDemand struct {
	ProductID int64     `json:"product_id"`
	Samples   []float64 `json:"samples"`
}

type XYZItem struct {
	ProductID              int64    `json:"product_id"`
	MeanDemand             float64  `json:"mean_demand"`
	StdDevDemand           float64  `json:"std_demand"`
	CoefficientOfVariation float64  `json:"coefficient_of_variation"`
	TotalDemand            float64  `json:"total_demand"`
	MaxDemand              float64  `json:"max_demand"`
	MinDemand              float64  `json:"min_demand"`
	DataPoints             int      `json:"data_points"`
	Class                  XYZClass `json:"xyz_class"`
}

// XYZClassFor maps a coefficient of variation (percent) to its class.
func XYZClassFor(cv float64) XYZClass {
	switch {
	case cv < xyzThresholdX:
		return ClassX
	case cv <= xyzThresholdY:
		return ClassY
	default:
		return ClassZ
	}
}

// ClassifyXYZ classifies demand variability per product. Products with fewer
// than two samples are left out. Results are ordered by ascending CV.
func ClassifyXYZ(demands []ProductDemand) []XYZItem {
	items := make([]XYZItem, 0, len(demands))
	for _, d := range demands {
		if len(d.Samples) < 2 {
			continue
		}
		cv := CoefficientOfVariation(d.Samples)
		lo, hi := minMax(d.Samples)
		items = append(items, XYZItem{
			ProductID:              d.ProductID,
			MeanDemand:             RoundTo(Mean(d.Samples), 2),
			StdDevDemand:           RoundTo(SampleStdDev(d.Samples), 2),
			CoefficientOfVariation: RoundTo(cv, 2),
			TotalDemand:            sum(d.Samples),
			MaxDemand:              hi,
			MinDemand:              lo,
			DataPoints:             len(d.Samples),
			Class:                  XYZClassFor(cv),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CoefficientOfVariation < items[j].CoefficientOfVariation
	})
	return items
}

// XYZClasses flattens ClassifyXYZ output into a product lookup.
func XYZClasses(items []XYZItem) map[int64]XYZClass {
	out := make(map[int64]XYZClass, len(items))
	for _, it := range items {
		out[it.ProductID] = it.Class
	}
	return out
}

// MatrixCell is the combined ABC-XYZ label, e.g. "AX".
type MatrixCell string

const DefaultCell MatrixCell = "BY"

// CombineABCXYZ joins the two labels into a matrix cell.
func CombineABCXYZ(abc ABCClass, xyz XYZClass) MatrixCell {
	return MatrixCell(strings.ToUpper(string(abc) + string(xyz)))
}

// Strategy is the stock policy attached to a matrix cell.
type Strategy struct {
	Cell                  MatrixCell `json:"cell"`
	Priority              int        `json:"priority"`
	MaxStockMultiplier    float64    `json:"max_stock_multiplier"`
	SafetyStockMultiplier float64    `json:"safety_stock_multiplier"`
	ReviewFrequencyDays   int        `json:"review_frequency_days"`
	Description           string     `json:"description"`
}

var strategies = map[MatrixCell]Strategy{
	"AX": {Priority: 1, MaxStockMultiplier: 1.5, SafetyStockMultiplier: 1.2, ReviewFrequencyDays: 7, Description: "Tight control with frequent monitoring and optimization"},
	"AY": {Priority: 2, MaxStockMultiplier: 2.0, SafetyStockMultiplier: 1.5, ReviewFrequencyDays: 14, Description: "Good control with regular review and safety stock"},
	"AZ": {Priority: 3, MaxStockMultiplier: 3.0, SafetyStockMultiplier: 2.0, ReviewFrequencyDays: 7, Description: "Intensive control with high safety stock and close monitoring"},
	"BX": {Priority: 4, MaxStockMultiplier: 1.8, SafetyStockMultiplier: 1.3, ReviewFrequencyDays: 14, Description: "Standard control with periodic review"},
	"BY": {Priority: 5, MaxStockMultiplier: 2.5, SafetyStockMultiplier: 1.8, ReviewFrequencyDays: 21, Description: "Normal control with moderate safety stock"},
	"BZ": {Priority: 6, MaxStockMultiplier: 3.5, SafetyStockMultiplier: 2.5, ReviewFrequencyDays: 14, Description: "Flexible control with responsive inventory management"},
	"CX": {Priority: 7, MaxStockMultiplier: 2.0, SafetyStockMultiplier: 1.0, ReviewFrequencyDays: 30, Description: "Simple control with minimal inventory"},
	"CY": {Priority: 8, MaxStockMultiplier: 3.0, SafetyStockMultiplier: 1.5, ReviewFrequencyDays: 45, Description: "Basic control with low safety stock"},
	"CZ": {Priority: 9, MaxStockMultiplier: 4.0, SafetyStockMultiplier: 2.0, ReviewFrequencyDays: 60, Description: "Minimal control or consider discontinuation"},
}

// StrategyFor returns the cell's strategy. Unknown cells get the BY parameters
// while keeping their own label.
func StrategyFor(cell MatrixCell) Strategy {
	s, ok := strategies[cell]
	if !ok {
		s = strategies[DefaultCell]
	}
	s.Cell = cell
	return s
}

// MatrixCells lists all nine cells in priority order.
func MatrixCells() []MatrixCell {
	return []MatrixCell{"AX", "AY", "AZ", "BX", "BY", "BZ", "CX", "CY", "CZ"}
}

type MatrixItem struct {
	ProductID              int64      `json:"product_id"`
	ABCClass               ABCClass   `json:"abc_class"`
	XYZClass               XYZClass   `json:"xyz_class"`
	Cell                   MatrixCell `json:"matrix_class"`
	Revenue                float64    `json:"revenue"`
	RevenuePercentage      float64    `json:"revenue_percentage"`
	CoefficientOfVariation float64    `json:"coefficient_of_variation"`
	MeanDemand             float64    `json:"mean_demand"`
	Strategy               Strategy   `json:"strategy"`
}

// BuildMatrix joins ABC and XYZ results on product. Products missing either
// class are left out. Items are ordered by priority, then revenue descending.
func BuildMatrix(abc []ABCItem, xyz []XYZItem) []MatrixItem {
	byProduct := make(map[int64]XYZItem, len(xyz))
	for _, x := range xyz {
		byProduct[x.ProductID] = x
	}

	items := make([]MatrixItem, 0, len(abc))
	for _, a := range abc {
		x, ok := byProduct[a.ProductID]
		if !ok {
			continue
		}
		cell := CombineABCXYZ(a.Class, x.Class)
		items = append(items, MatrixItem{
			ProductID:              a.ProductID,
			ABCClass:               a.Class,
			XYZClass:               x.Class,
			Cell:                   cell,
			Revenue:                a.Revenue,
			RevenuePercentage:      a.RevenuePercentage,
			CoefficientOfVariation: x.CoefficientOfVariation,
			MeanDemand:             x.MeanDemand,
			Strategy:               StrategyFor(cell),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Strategy.Priority != items[j].Strategy.Priority {
			return items[i].Strategy.Priority < items[j].Strategy.Priority
		}
		return items[i].Revenue > items[j].Revenue
	})
	return items
}

// CountByCell tallies matrix items per cell. Every cell is present in the result.
func CountByCell(items []MatrixItem) map[MatrixCell]int {
	counts := make(map[MatrixCell]int, 9)
	for _, c := range MatrixCells() {
		counts[c] = 0
	}
	for _, it := range items {
		counts[it.Cell]++
	}
	return counts
}
