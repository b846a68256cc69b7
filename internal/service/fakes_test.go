package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/pipeline"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/andresuchdata/velorize/backend-go/internal/repository"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeDemand struct {
	mu          sync.Mutex
	calls       int
	monthly     []domain.DemandPoint
	daily       []domain.DailyDemand
	revenues    []domain.ProductRevenue
	sales       []domain.ProductSales
	trailing    []domain.TrailingDemand
	periodSales func(from, to time.Time) domain.PeriodSales
	// failCustomer makes period queries targeting this customer fail.
	failCustomer int64
}

func (f *fakeDemand) hit() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeDemand) GetMonthlyDemand(ctx context.Context, productID int64, from, to time.Time) ([]domain.DemandPoint, error) {
	f.hit()
	return f.monthly, nil
}
func (f *fakeDemand) GetDailyDemand(ctx context.Context, from, to time.Time, ids []int64) ([]domain.DailyDemand, error) {
	f.hit()
	return f.daily, nil
}
func (f *fakeDemand) GetRevenueByProduct(ctx context.Context, from, to time.Time) ([]domain.ProductRevenue, error) {
	f.hit()
	return f.revenues, nil
}
func (f *fakeDemand) GetProductSales(ctx context.Context, from, to time.Time) ([]domain.ProductSales, error) {
	f.hit()
	return f.sales, nil
}
func (f *fakeDemand) GetPeriodSales(ctx context.Context, from, to time.Time, customers []int64) (domain.PeriodSales, error) {
	f.hit()
	for _, c := range customers {
		if f.failCustomer != 0 && c == f.failCustomer {
			return domain.PeriodSales{}, errors.New("statement timeout")
		}
	}
	if f.periodSales == nil {
		return domain.PeriodSales{}, nil
	}
	return f.periodSales(from, to), nil
}
func (f *fakeDemand) GetTrailingDemand(ctx context.Context, since time.Time) ([]domain.TrailingDemand, error) {
	f.hit()
	return f.trailing, nil
}

type fakeInventory struct {
	positions []domain.StockPosition
}

func (f *fakeInventory) GetStockPositions(ctx context.Context, ids []int64) ([]domain.StockPosition, error) {
	if len(ids) == 0 {
		return f.positions, nil
	}
	keep := idSet(ids)
	var out []domain.StockPosition
	for _, p := range f.positions {
		if keep[p.ProductID] {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeMarketing struct {
	events []domain.MarketingEvent
}

func (f *fakeMarketing) GetEvent(ctx context.Context, id int64) (*domain.MarketingEvent, error) {
	for _, e := range f.events {
		if e.ID == id {
			e := e
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}
func (f *fakeMarketing) ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.MarketingEvent, error) {
	return f.events, nil
}
func (f *fakeMarketing) ListActiveEventsBetween(ctx context.Context, from, to time.Time) ([]domain.MarketingEvent, error) {
	return nil, nil
}

type fakeForecasts struct {
	actuals []domain.ForecastActualRow
}

func (f *fakeForecasts) SaveForecasts(ctx context.Context, forecasts []domain.DemandForecast) error {
	return nil
}
func (f *fakeForecasts) ListForecasts(ctx context.Context, filter domain.ForecastFilter) ([]domain.DemandForecast, int, error) {
	return nil, 0, nil
}
func (f *fakeForecasts) DeactivateForecast(ctx context.Context, id int64) error { return nil }
func (f *fakeForecasts) GetForecastActuals(ctx context.Context, from, to time.Time, productID *int64) ([]domain.ForecastActualRow, error) {
	return f.actuals, nil
}

type fakeRunner struct {
	productIDs []int64
	pipelines  []pipeline.Pipeline
}

func (f *fakeRunner) RunItems(ctx context.Context, asOf time.Time, ids []int64, ps ...pipeline.Pipeline) ([]*pipeline.RunReport, error) {
	f.productIDs = ids
	f.pipelines = ps
	return []*pipeline.RunReport{{Pipeline: "forecast", Status: pipeline.StatusCompleted, Total: len(ids)}}, nil
}

// memoryCache is a map-backed planning cache.
type memoryCache struct {
	mu     sync.Mutex
	matrix map[string][]planning.MatrixItem
}

func newMemoryCache() *memoryCache {
	return &memoryCache{matrix: map[string][]planning.MatrixItem{}}
}

func matrixKey(f domain.AnalysisFilter) string {
	return fmt.Sprintf("%d:%s", f.AnalysisDays, f.Cell)
}

func (c *memoryCache) GetMatrix(ctx context.Context, filter domain.AnalysisFilter) ([]planning.MatrixItem, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, ok := c.matrix[matrixKey(filter)]
	return items, ok, nil
}
func (c *memoryCache) SetMatrix(ctx context.Context, filter domain.AnalysisFilter, items []planning.MatrixItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matrix[matrixKey(filter)] = items
	return nil
}
func (c *memoryCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matrix = map[string][]planning.MatrixItem{}
	return nil
}
