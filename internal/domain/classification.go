package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductClassification is one row of a dated ABC-XYZ snapshot. XYZClass is
// empty for products without enough demand history.
type ProductClassification struct {
	AnalysisDate           time.Time       `json:"analysis_date" db:"analysis_date"`
	ProductID              int64           `json:"product_id" db:"product_id"`
	ABCClass               string          `json:"abc_class" db:"abc_class"`
	XYZClass               string          `json:"xyz_class" db:"xyz_class"`
	MatrixCell             string          `json:"matrix_cell" db:"matrix_cell"`
	Revenue                decimal.Decimal `json:"revenue" db:"revenue"`
	CoefficientOfVariation *float64        `json:"coefficient_of_variation,omitempty" db:"coefficient_of_variation"`
	Priority               int             `json:"priority" db:"priority"`
}
