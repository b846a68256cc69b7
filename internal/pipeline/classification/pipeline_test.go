package classification

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
)

type fakeDemand struct {
	revenues []domain.ProductRevenue
	daily    []domain.DailyDemand
	dailyIDs []int64
}

func (f *fakeDemand) GetMonthlyDemand(ctx context.Context, productID int64, from, to time.Time) ([]domain.DemandPoint, error) {
	return nil, nil
}
func (f *fakeDemand) GetDailyDemand(ctx context.Context, from, to time.Time, ids []int64) ([]domain.DailyDemand, error) {
	f.dailyIDs = ids
	return f.daily, nil
}
func (f *fakeDemand) GetRevenueByProduct(ctx context.Context, from, to time.Time) ([]domain.ProductRevenue, error) {
	return f.revenues, nil
}
func (f *fakeDemand) GetProductSales(ctx context.Context, from, to time.Time) ([]domain.ProductSales, error) {
	return nil, nil
}
func (f *fakeDemand) GetPeriodSales(ctx context.Context, from, to time.Time, customers []int64) (domain.PeriodSales, error) {
	return domain.PeriodSales{}, nil
}
func (f *fakeDemand) GetTrailingDemand(ctx context.Context, since time.Time) ([]domain.TrailingDemand, error) {
	return nil, nil
}

type fakeClassifications struct {
	date     time.Time
	saved    []domain.ProductClassification
	existing []domain.ProductClassification
}

func (f *fakeClassifications) SaveClassifications(ctx context.Context, date time.Time, items []domain.ProductClassification) error {
	f.date = date
	f.saved = items
	return nil
}
func (f *fakeClassifications) GetLatestClassifications(ctx context.Context) ([]domain.ProductClassification, error) {
	return f.existing, nil
}

type countingCache struct {
	invalidations int
}

func (c *countingCache) GetMatrix(ctx context.Context, filter domain.AnalysisFilter) ([]planning.MatrixItem, bool, error) {
	return nil, false, nil
}
func (c *countingCache) SetMatrix(ctx context.Context, filter domain.AnalysisFilter, items []planning.MatrixItem) error {
	return nil
}
func (c *countingCache) InvalidateAll(ctx context.Context) error {
	c.invalidations++
	return nil
}

var asOf = time.Date(2024, 6, 15, 13, 30, 0, 0, time.UTC)

func samples(id int64, qty ...float64) []domain.DailyDemand {
	out := make([]domain.DailyDemand, len(qty))
	for i, q := range qty {
		out[i] = domain.DailyDemand{ProductID: id, Day: asOf.AddDate(0, 0, -i), Quantity: q}
	}
	return out
}

func testDemand() *fakeDemand {
	d := &fakeDemand{
		revenues: []domain.ProductRevenue{
			{ProductID: 1, Revenue: decimal.NewFromInt(800)},
			{ProductID: 2, Revenue: decimal.NewFromInt(150)},
			{ProductID: 3, Revenue: decimal.NewFromInt(50)},
		},
	}
	d.daily = append(d.daily, samples(1, 10, 10, 10, 11)...)
	d.daily = append(d.daily, samples(2, 1, 20, 0, 30)...)
	d.daily = append(d.daily, samples(3, 5)...)
	return d
}

func TestAnalysisWindow(t *testing.T) {
	from, to := AnalysisWindow(asOf, 30)
	if !to.Equal(time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)) || !from.Equal(time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("AnalysisWindow = %s..%s", from, to)
	}
}

func TestClassificationPipelineSnapshot(t *testing.T) {
	repo := &fakeClassifications{}
	c := &countingCache{}
	p := NewClassificationPipeline(90, testDemand(), repo, c)

	ctx := context.Background()
	b, err := p.Prepare(ctx, asOf, nil)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if got := b.Items(); len(got) != 3 || got[0] != 1 {
		t.Fatalf("Items() = %v, want products ranked by revenue", got)
	}

	for _, id := range b.Items() {
		res, err := b.Process(ctx, id)
		if err != nil || res.Rows != 1 {
			t.Fatalf("Process(%d) = %+v, %v", id, res, err)
		}
	}
	if res, _ := b.Process(ctx, 99); !res.Skipped {
		t.Errorf("Process(99) = %+v, want skipped for a product without sales", res)
	}

	if err := b.Finalize(ctx); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !repo.date.Equal(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("analysis date = %s", repo.date)
	}
	if c.invalidations != 1 {
		t.Errorf("cache invalidated %d times, want 1", c.invalidations)
	}

	want := map[int64]struct {
		abc, xyz, cell string
		priority       int
	}{
		1: {"A", "X", "AX", 1},
		2: {"B", "Z", "BZ", 6},
		3: {"C", "", "", UnclassifiedPriority},
	}
	if len(repo.saved) != len(want) {
		t.Fatalf("saved %d rows, want %d", len(repo.saved), len(want))
	}
	for _, row := range repo.saved {
		w := want[row.ProductID]
		if row.ABCClass != w.abc || row.XYZClass != w.xyz || row.MatrixCell != w.cell || row.Priority != w.priority {
			t.Errorf("product %d = %s/%s/%s p%d, want %s/%s/%s p%d", row.ProductID,
				row.ABCClass, row.XYZClass, row.MatrixCell, row.Priority, w.abc, w.xyz, w.cell, w.priority)
		}
		if (row.CoefficientOfVariation == nil) != (w.xyz == "") {
			t.Errorf("product %d CV presence mismatch", row.ProductID)
		}
	}
}

func TestClassificationPipelinePartialRunKeepsSnapshot(t *testing.T) {
	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	repo := &fakeClassifications{existing: []domain.ProductClassification{
		{AnalysisDate: day, ProductID: 1, ABCClass: "A", XYZClass: "X", MatrixCell: "AX", Priority: 1},
		{AnalysisDate: day, ProductID: 2, ABCClass: "B", Priority: UnclassifiedPriority},
		{AnalysisDate: day, ProductID: 3, ABCClass: "C", Priority: UnclassifiedPriority},
	}}
	demand := testDemand()
	p := NewClassificationPipeline(90, demand, repo, nil)

	ctx := context.Background()
	b, err := p.Prepare(ctx, asOf, []int64{2})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(demand.dailyIDs) != 1 || demand.dailyIDs[0] != 2 {
		t.Errorf("daily demand loaded for %v, want [2]", demand.dailyIDs)
	}
	if _, err := b.Process(ctx, 2); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := b.Finalize(ctx); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if len(repo.saved) != 3 {
		t.Fatalf("saved %d rows, want the full snapshot of 3", len(repo.saved))
	}
	for _, row := range repo.saved {
		if row.ProductID == 2 && row.MatrixCell != "BZ" {
			t.Errorf("product 2 cell = %q, want refreshed BZ", row.MatrixCell)
		}
	}
}
