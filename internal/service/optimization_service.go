package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/velorize/backend-go/internal/config"
	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/andresuchdata/velorize/backend-go/internal/repository"
)

const daysPerYear = 365

// ProductEOQ is the economic order quantity of one product, derived from its
// sales over the analysis window scaled to a year.
type ProductEOQ struct {
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	AnnualDemand float64 `json:"annual_demand"`
	UnitCost     float64 `json:"unit_cost"`
	HoldingCost  float64 `json:"holding_cost_per_unit"`
	planning.EOQResult
}

// ProductReorderPoint is a product's reorder point from its daily demand profile.
type ProductReorderPoint struct {
	ProductID     int64   `json:"product_id"`
	ProductName   string  `json:"product_name"`
	CurrentStock  float64 `json:"current_stock"`
	LeadTimeDays  int     `json:"lead_time_days"`
	AvgDailyUsage float64 `json:"avg_daily_demand"`
	DemandStdDev  float64 `json:"demand_std_dev"`
	NeedsReorder  bool    `json:"needs_reorder"`
	planning.ReorderPointResult
}

// ProductPolicy is the ABC-XYZ stock policy for one product.
type ProductPolicy struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	planning.StockPolicy
}

type OptimizationService struct {
	demand    repository.DemandRepository
	inventory repository.InventoryRepository
	analytics *AnalyticsService
	cfg       config.PlanningConfig
}

func NewOptimizationService(
	demand repository.DemandRepository,
	inventory repository.InventoryRepository,
	analytics *AnalyticsService,
	cfg config.PlanningConfig,
) *OptimizationService {
	return &OptimizationService{
		demand:    demand,
		inventory: inventory,
		analytics: analytics,
		cfg:       cfg,
	}
}

// EOQ computes order quantities for stocked products. Holding cost is the
// configured percentage of unit cost.
func (s *OptimizationService) EOQ(ctx context.Context, filter domain.AnalysisFilter) ([]ProductEOQ, error) {
	from, to, days := s.analytics.window(filter.AnalysisDays)

	var (
		sales     []domain.ProductSales
		positions []domain.StockPosition
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.demand.GetProductSales(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		positions, err = s.inventory.GetStockPositions(gctx, filter.ProductIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "eoq analysis")
	}

	sold := make(map[int64]float64, len(sales))
	for _, ps := range sales {
		sold[ps.ProductID] = ps.Quantity
	}

	out := make([]ProductEOQ, 0, len(positions))
	for _, pos := range positions {
		annual := sold[pos.ProductID] * daysPerYear / float64(days)
		unitCost := pos.UnitCost.InexactFloat64()
		holding := unitCost * s.cfg.HoldingCostPct / 100
		out = append(out, ProductEOQ{
			ProductID:    pos.ProductID,
			ProductName:  pos.ProductName,
			AnnualDemand: planning.RoundTo(annual, 2),
			UnitCost:     unitCost,
			HoldingCost:  planning.RoundTo(holding, 2),
			EOQResult:    planning.EconomicOrderQuantity(annual, s.cfg.OrderingCost, holding),
		})
	}
	return out, nil
}

// ReorderPoints computes reorder points from zero-filled daily demand. A
// service level of 0 takes the configured default.
func (s *OptimizationService) ReorderPoints(ctx context.Context, filter domain.AnalysisFilter, serviceLevel float64) ([]ProductReorderPoint, error) {
	if serviceLevel <= 0 {
		serviceLevel = s.cfg.DefaultServiceLevel
	}
	from, to, days := s.analytics.window(filter.AnalysisDays)

	var (
		daily     []domain.DailyDemand
		positions []domain.StockPosition
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		daily, err = s.demand.GetDailyDemand(gctx, from, to, filter.ProductIDs)
		return err
	})
	g.Go(func() error {
		var err error
		positions, err = s.inventory.GetStockPositions(gctx, filter.ProductIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "reorder point analysis")
	}

	series := dailySeries(daily, from, days)

	out := make([]ProductReorderPoint, 0, len(positions))
	for _, pos := range positions {
		samples := series[pos.ProductID]
		if samples == nil {
			samples = make([]float64, days)
		}
		lead := pos.LeadTimeDays
		if lead <= 0 {
			lead = s.cfg.DefaultLeadTimeDays
		}
		mean := planning.Mean(samples)
		std := planning.SampleStdDev(samples)
		rop := planning.ReorderPoint(float64(lead), mean, std, serviceLevel)

		out = append(out, ProductReorderPoint{
			ProductID:          pos.ProductID,
			ProductName:        pos.ProductName,
			CurrentStock:       pos.CurrentStock,
			LeadTimeDays:       lead,
			AvgDailyUsage:      planning.RoundTo(mean, 2),
			DemandStdDev:       planning.RoundTo(std, 2),
			NeedsReorder:       pos.CurrentStock <= rop.ReorderPoint,
			ReorderPointResult: rop,
		})
	}
	return out, nil
}

// Policies joins the ABC-XYZ matrix with reorder points and order quantities
// and sets each product's stock band from its cell strategy.
func (s *OptimizationService) Policies(ctx context.Context, filter domain.AnalysisFilter, serviceLevel float64) ([]ProductPolicy, error) {
	var (
		matrix *MatrixReport
		eoqs   []ProductEOQ
		rops   []ProductReorderPoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		matrix, err = s.analytics.Matrix(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		eoqs, err = s.EOQ(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		rops, err = s.ReorderPoints(gctx, filter, serviceLevel)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	eoqBy := make(map[int64]ProductEOQ, len(eoqs))
	for _, e := range eoqs {
		eoqBy[e.ProductID] = e
	}
	ropBy := make(map[int64]ProductReorderPoint, len(rops))
	for _, r := range rops {
		ropBy[r.ProductID] = r
	}

	out := make([]ProductPolicy, 0, len(matrix.Items))
	for _, it := range matrix.Items {
		rop, ok := ropBy[it.ProductID]
		if !ok {
			// no stock record
			continue
		}
		out = append(out, ProductPolicy{
			ProductID:   it.ProductID,
			ProductName: rop.ProductName,
			StockPolicy: planning.ApplyStrategy(it.Cell, rop.CurrentStock, rop.ReorderPoint, eoqBy[it.ProductID].EOQ),
		})
	}
	return out, nil
}

// dailySeries expands sparse daily rows into one zero-filled slice per product
// covering days days from from.
func dailySeries(rows []domain.DailyDemand, from time.Time, days int) map[int64][]float64 {
	out := make(map[int64][]float64)
	for _, r := range rows {
		idx := int(r.Day.Sub(from).Hours() / 24)
		if idx < 0 || idx >= days {
			continue
		}
		s, ok := out[r.ProductID]
		if !ok {
			s = make([]float64, days)
			out[r.ProductID] = s
		}
		s[idx] += r.Quantity
	}
	return out
}
