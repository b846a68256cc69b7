package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/velorize/backend-go/internal/cache"
	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/andresuchdata/velorize/backend-go/internal/repository"
)

const seasonalityMonths = 24

// MatrixReport is the ABC-XYZ matrix with its per-cell counts.
type MatrixReport struct {
	AnalysisDays int                         `json:"analysis_period_days"`
	Items        []planning.MatrixItem       `json:"products"`
	Counts       map[planning.MatrixCell]int `json:"matrix_summary"`
}

// ProductPerformance pairs a product's stock velocity with its margin.
type ProductPerformance struct {
	ProductID     int64                  `json:"product_id"`
	ProductName   string                 `json:"product_name"`
	Velocity      planning.Velocity      `json:"velocity"`
	Profitability planning.Profitability `json:"profitability"`
}

type AnalyticsService struct {
	demand      repository.DemandRepository
	inventory   repository.InventoryRepository
	cache       cache.PlanningCache
	defaultDays int
	now         func() time.Time
}

func NewAnalyticsService(
	demand repository.DemandRepository,
	inventory repository.InventoryRepository,
	cacheImpl cache.PlanningCache,
	analysisDays int,
) *AnalyticsService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopPlanningCache()
	}
	if analysisDays <= 0 {
		analysisDays = 365
	}
	return &AnalyticsService{
		demand:      demand,
		inventory:   inventory,
		cache:       cacheImpl,
		defaultDays: analysisDays,
		now:         time.Now,
	}
}

// window returns the half-open range of the last days days, today included.
func (s *AnalyticsService) window(days int) (time.Time, time.Time, int) {
	if days <= 0 {
		days = s.defaultDays
	}
	now := s.now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return to.AddDate(0, 0, -days), to, days
}

func (s *AnalyticsService) ABC(ctx context.Context, filter domain.AnalysisFilter) ([]planning.ABCItem, error) {
	from, to, _ := s.window(filter.AnalysisDays)
	revenues, err := s.demand.GetRevenueByProduct(ctx, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "abc analysis")
	}
	return filterABC(planning.ClassifyABC(toPlanningRevenue(revenues)), filter.ProductIDs), nil
}

func (s *AnalyticsService) XYZ(ctx context.Context, filter domain.AnalysisFilter) ([]planning.XYZItem, error) {
	from, to, _ := s.window(filter.AnalysisDays)
	daily, err := s.demand.GetDailyDemand(ctx, from, to, filter.ProductIDs)
	if err != nil {
		return nil, errors.Wrap(err, "xyz analysis")
	}
	return planning.ClassifyXYZ(groupSamples(daily)), nil
}

// Matrix combines ABC and XYZ over the same window. Results are cached per
// filter; a cache failure only costs the recomputation.
func (s *AnalyticsService) Matrix(ctx context.Context, filter domain.AnalysisFilter) (*MatrixReport, error) {
	from, to, days := s.window(filter.AnalysisDays)
	filter.AnalysisDays = days

	items, ok, err := s.cache.GetMatrix(ctx, filter)
	if err != nil {
		log.Warn().Err(err).Msg("analytics: cache get matrix failed")
	}
	if !ok {
		var (
			revenues []domain.ProductRevenue
			daily    []domain.DailyDemand
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			revenues, err = s.demand.GetRevenueByProduct(gctx, from, to)
			return err
		})
		g.Go(func() error {
			var err error
			daily, err = s.demand.GetDailyDemand(gctx, from, to, filter.ProductIDs)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, errors.Wrap(err, "abc-xyz matrix")
		}

		abc := filterABC(planning.ClassifyABC(toPlanningRevenue(revenues)), filter.ProductIDs)
		xyz := planning.ClassifyXYZ(groupSamples(daily))
		items = filterCell(planning.BuildMatrix(abc, xyz), filter.Cell)

		if err := s.cache.SetMatrix(ctx, filter, items); err != nil {
			log.Warn().Err(err).Msg("analytics: cache set matrix failed")
		}
	}

	if items == nil {
		items = []planning.MatrixItem{}
	}
	return &MatrixReport{
		AnalysisDays: days,
		Items:        items,
		Counts:       planning.CountByCell(items),
	}, nil
}

// Velocity rates stock turnover and gross margin for each stocked product.
func (s *AnalyticsService) Velocity(ctx context.Context, filter domain.AnalysisFilter) ([]ProductPerformance, error) {
	from, to, days := s.window(filter.AnalysisDays)

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
		return nil, errors.Wrap(err, "velocity analysis")
	}

	byProduct := make(map[int64]domain.ProductSales, len(sales))
	for _, ps := range sales {
		byProduct[ps.ProductID] = ps
	}

	out := make([]ProductPerformance, 0, len(positions))
	for _, pos := range positions {
		ps := byProduct[pos.ProductID]
		out = append(out, ProductPerformance{
			ProductID:     pos.ProductID,
			ProductName:   pos.ProductName,
			Velocity:      planning.ClassifyVelocity(pos.ProductID, ps.Quantity, pos.CurrentStock, days),
			Profitability: planning.ClassifyProfitability(pos.ProductID, ps.Revenue.InexactFloat64(), ps.Cost.InexactFloat64()),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Velocity.TurnoverRatio > out[j].Velocity.TurnoverRatio
	})
	return out, nil
}

// Seasonality profiles a product's monthly demand over the last two years.
// ok is false when there is no history to profile.
func (s *AnalyticsService) Seasonality(ctx context.Context, productID int64) (planning.SeasonalProfile, bool, error) {
	now := s.now().UTC()
	to := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	from := to.AddDate(0, -seasonalityMonths, 0)

	points, err := s.demand.GetMonthlyDemand(ctx, productID, from, to)
	if err != nil {
		return planning.SeasonalProfile{}, false, errors.Wrapf(err, "seasonality for product %d", productID)
	}

	obs := make([]planning.MonthlyObservation, len(points))
	for i, p := range points {
		obs[i] = planning.MonthlyObservation{Month: p.Period, Quantity: p.Quantity, Revenue: p.Revenue.InexactFloat64()}
	}
	profile, ok := planning.MonthlySeasonalIndices(obs)
	return profile, ok, nil
}

func toPlanningRevenue(rows []domain.ProductRevenue) []planning.ProductRevenue {
	out := make([]planning.ProductRevenue, len(rows))
	for i, r := range rows {
		out[i] = planning.ProductRevenue{ProductID: r.ProductID, Revenue: r.Revenue.InexactFloat64()}
	}
	return out
}

// filterABC keeps the requested products. Classes and shares stay relative to
// the whole catalogue.
func filterABC(items []planning.ABCItem, only []int64) []planning.ABCItem {
	keep := idSet(only)
	if keep == nil {
		return items
	}
	out := make([]planning.ABCItem, 0, len(only))
	for _, it := range items {
		if keep[it.ProductID] {
			out = append(out, it)
		}
	}
	return out
}

// groupSamples collects each product's daily quantities in input order.
func groupSamples(rows []domain.DailyDemand) []planning.ProductDemand {
	var order []int64
	byProduct := make(map[int64][]float64)
	for _, r := range rows {
		if _, ok := byProduct[r.ProductID]; !ok {
			order = append(order, r.ProductID)
		}
		byProduct[r.ProductID] = append(byProduct[r.ProductID], r.Quantity)
	}
	out := make([]planning.ProductDemand, len(order))
	for i, id := range order {
		out[i] = planning.ProductDemand{ProductID: id, Samples: byProduct[id]}
	}
	return out
}

func filterCell(items []planning.MatrixItem, cell string) []planning.MatrixItem {
	cell = strings.ToUpper(strings.TrimSpace(cell))
	if cell == "" {
		return items
	}
	out := make([]planning.MatrixItem, 0, len(items))
	for _, it := range items {
		if string(it.Cell) == cell {
			out = append(out, it)
		}
	}
	return out
}

func idSet(ids []int64) map[int64]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
