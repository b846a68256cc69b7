package planning

import (
	"math"
	"testing"
)

func TestEconomicOrderQuantity(t *testing.T) {
	r := EconomicOrderQuantity(10000, 100, 20)
	if !approxEqual(r.EOQ, 316.23, 0.01) {
		t.Errorf("EOQ = %v, want 316.23", r.EOQ)
	}
	if !approxEqual(r.OrdersPerYear, 31.62, 0.01) {
		t.Errorf("OrdersPerYear = %v, want 31.62", r.OrdersPerYear)
	}
	if !approxEqual(r.AnnualOrderingCost, r.AnnualHoldingCost, 0.01) {
		t.Errorf("ordering %v and holding %v should balance at the EOQ", r.AnnualOrderingCost, r.AnnualHoldingCost)
	}
	if !approxEqual(r.TotalAnnualCost, 6324.56, 0.01) {
		t.Errorf("TotalAnnualCost = %v, want 6324.56", r.TotalAnnualCost)
	}
}

func TestEconomicOrderQuantityDegenerate(t *testing.T) {
	tests := []struct {
		name             string
		demand, ord, hld float64
	}{
		{"zero demand", 0, 100, 20},
		{"negative ordering cost", 10000, -1, 20},
		{"zero holding cost", 10000, 100, 0},
		{"nan demand", math.NaN(), 100, 20},
		{"infinite holding", 10000, 100, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EconomicOrderQuantity(tt.demand, tt.ord, tt.hld); got != (EOQResult{}) {
				t.Errorf("EconomicOrderQuantity() = %+v, want zero result", got)
			}
		})
	}
}

func TestReorderPoint(t *testing.T) {
	r := ReorderPoint(7, 50, 10, 0.95)
	if r.LeadTimeDemand != 350 {
		t.Errorf("LeadTimeDemand = %v, want 350", r.LeadTimeDemand)
	}
	if !approxEqual(r.SafetyStock, 1.65*10*math.Sqrt(7), 0.01) {
		t.Errorf("SafetyStock = %v, want ~43.65", r.SafetyStock)
	}
	if !approxEqual(r.ReorderPoint, 393.65, 0.02) {
		t.Errorf("ReorderPoint = %v, want ~393.65", r.ReorderPoint)
	}
	if r.ZScore != 1.65 || r.ServiceLevel != 0.95 {
		t.Errorf("z = %v, service level = %v", r.ZScore, r.ServiceLevel)
	}
}

func TestReorderPointDegenerateInputs(t *testing.T) {
	tests := []struct {
		name                     string
		lead, demand, std, level float64
		wantROP                  float64
	}{
		{"zero lead time", 0, 50, 10, 0.95, 0},
		{"negative lead time", -3, 50, 10, 0.95, 0},
		{"negative demand", 4, -10, 0, 0.95, 0},
		{"zero deviation", 4, 10, 0, 0.99, 40},
		{"nan deviation", 4, 10, math.NaN(), 0.99, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ReorderPoint(tt.lead, tt.demand, tt.std, tt.level)
			if math.IsNaN(r.ReorderPoint) || r.ReorderPoint != tt.wantROP {
				t.Errorf("ReorderPoint = %v, want %v", r.ReorderPoint, tt.wantROP)
			}
			if r.SafetyStock != 0 {
				t.Errorf("SafetyStock = %v, want 0", r.SafetyStock)
			}
		})
	}
}

func TestZScore(t *testing.T) {
	tests := map[float64]float64{
		0.90: 1.28,
		0.95: 1.65,
		0.97: 1.88,
		0.99: 2.33,
		0.93: DefaultZScore,
		0.5:  DefaultZScore,
	}
	for level, want := range tests {
		if got := ZScore(level); got != want {
			t.Errorf("ZScore(%v) = %v, want %v", level, got, want)
		}
	}
}

func TestApplyStrategy(t *testing.T) {
	tests := []struct {
		name   string
		cell   MatrixCell
		stock  float64
		want   StockStatus
		wantMx float64
	}{
		{"below min", "AX", 40, StockCritical, 400},
		{"at min", "AX", 50, StockCritical, 400},
		{"below reorder point", "AX", 80, StockLow, 400},
		{"within band", "AX", 300, StockOptimal, 400},
		{"at max", "AX", 400, StockOptimal, 400},
		{"above max", "AX", 401, StockExcess, 400},
		{"unknown cell uses BY", "ZZ", 550, StockOptimal, 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ApplyStrategy(tt.cell, tt.stock, 100, 200)
			if p.Status != tt.want {
				t.Errorf("Status = %s, want %s", p.Status, tt.want)
			}
			if p.RecommendedMaxStock != tt.wantMx || p.RecommendedMinStock != 50 {
				t.Errorf("bands = [%v, %v], want [50, %v]", p.RecommendedMinStock, p.RecommendedMaxStock, tt.wantMx)
			}
		})
	}
}
