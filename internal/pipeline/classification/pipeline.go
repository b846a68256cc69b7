package classification

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/andresuchdata/velorize/backend-go/internal/cache"
	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/pipeline"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/andresuchdata/velorize/backend-go/internal/repository"
)

// Name is the run-tracking name of the classification pipeline.
const Name = "classification"

// UnclassifiedPriority sorts ABC-only rows after every matrix cell.
const UnclassifiedPriority = 10

const defaultAnalysisDays = 365

// ClassificationPipeline implements pipeline.Pipeline by writing a dated
// ABC-XYZ snapshot. ABC is ranked across the whole product set during Prepare;
// XYZ and the matrix cell are resolved per product.
type ClassificationPipeline struct {
	analysisDays    int
	demand          repository.DemandRepository
	classifications repository.ClassificationRepository
	cache           cache.PlanningCache
}

// NewClassificationPipeline creates a new classification pipeline instance.
// A nil cache is replaced by the noop cache.
func NewClassificationPipeline(
	analysisDays int,
	demand repository.DemandRepository,
	classifications repository.ClassificationRepository,
	planningCache cache.PlanningCache,
) *ClassificationPipeline {
	if analysisDays < 1 {
		analysisDays = defaultAnalysisDays
	}
	if planningCache == nil {
		planningCache = cache.NewNoopPlanningCache()
	}
	return &ClassificationPipeline{
		analysisDays:    analysisDays,
		demand:          demand,
		classifications: classifications,
		cache:           planningCache,
	}
}

// Name returns the unique identifier of this pipeline.
func (p *ClassificationPipeline) Name() string {
	return Name
}

// AnalysisWindow returns the half-open window [from, to) ending with asOf's day.
func AnalysisWindow(asOf time.Time, days int) (time.Time, time.Time) {
	day := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	to := day.AddDate(0, 0, 1)
	return to.AddDate(0, 0, -days), to
}

// Prepare ranks revenue over the analysis window and loads daily demand
// samples for the products being classified.
func (p *ClassificationPipeline) Prepare(ctx context.Context, asOf time.Time, productIDs []int64) (pipeline.Batch, error) {
	from, to := AnalysisWindow(asOf, p.analysisDays)

	revenues, err := p.demand.GetRevenueByProduct(ctx, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "load revenue")
	}

	// ABC shares are always computed over the full product set so a partial
	// retry does not shift class boundaries.
	inputs := make([]planning.ProductRevenue, len(revenues))
	revenueByProduct := make(map[int64]decimal.Decimal, len(revenues))
	for i, r := range revenues {
		inputs[i] = planning.ProductRevenue{ProductID: r.ProductID, Revenue: r.Revenue.InexactFloat64()}
		revenueByProduct[r.ProductID] = r.Revenue
	}
	abc := planning.ClassifyABC(inputs)
	abcByProduct := make(map[int64]planning.ABCItem, len(abc))
	for _, it := range abc {
		abcByProduct[it.ProductID] = it
	}

	ids := productIDs
	if len(ids) == 0 {
		ids = make([]int64, len(abc))
		for i, it := range abc {
			ids[i] = it.ProductID
		}
	}

	daily, err := p.demand.GetDailyDemand(ctx, from, to, productIDs)
	if err != nil {
		return nil, errors.Wrap(err, "load daily demand")
	}
	samples := make(map[int64][]float64)
	for _, d := range daily {
		samples[d.ProductID] = append(samples[d.ProductID], d.Quantity)
	}

	log.Info().
		Str("pipeline", Name).
		Int("products", len(ids)).
		Time("from", from).
		Time("to", to).
		Msg("prepared classification batch")

	return &batch{
		p:            p,
		analysisDate: to.AddDate(0, 0, -1),
		ids:          ids,
		partial:      len(productIDs) > 0,
		abc:          abcByProduct,
		revenue:      revenueByProduct,
		samples:      samples,
	}, nil
}

type batch struct {
	p            *ClassificationPipeline
	analysisDate time.Time
	ids          []int64
	partial      bool
	abc          map[int64]planning.ABCItem
	revenue      map[int64]decimal.Decimal
	samples      map[int64][]float64

	mu   sync.Mutex
	rows []domain.ProductClassification
}

func (b *batch) Items() []int64 {
	return b.ids
}

// Process resolves one product's XYZ class and matrix cell.
func (b *batch) Process(ctx context.Context, productID int64) (pipeline.ItemResult, error) {
	a, ok := b.abc[productID]
	if !ok {
		return pipeline.ItemResult{Skipped: true, Reason: "no sales in analysis window"}, nil
	}

	row := domain.ProductClassification{
		AnalysisDate: b.analysisDate,
		ProductID:    productID,
		ABCClass:     string(a.Class),
		Revenue:      b.revenue[productID],
		Priority:     UnclassifiedPriority,
	}

	reason := ""
	xyz := planning.ClassifyXYZ([]planning.ProductDemand{{ProductID: productID, Samples: b.samples[productID]}})
	if len(xyz) == 1 {
		x := xyz[0]
		cell := planning.CombineABCXYZ(a.Class, x.Class)
		cv := planning.RoundTo(x.CoefficientOfVariation, 2)
		row.XYZClass = string(x.Class)
		row.MatrixCell = string(cell)
		row.CoefficientOfVariation = &cv
		row.Priority = planning.StrategyFor(cell).Priority
	} else {
		reason = "abc only: fewer than 2 demand samples"
	}

	b.mu.Lock()
	b.rows = append(b.rows, row)
	b.mu.Unlock()

	return pipeline.ItemResult{Rows: 1, Reason: reason}, nil
}

// Finalize replaces the snapshot for the analysis date and drops cached
// matrices built from the previous one.
func (b *batch) Finalize(ctx context.Context) error {
	b.mu.Lock()
	rows := b.rows
	b.mu.Unlock()

	if b.partial {
		merged, err := b.mergeWithSnapshot(ctx, rows)
		if err != nil {
			return err
		}
		rows = merged
	}

	if len(rows) == 0 {
		log.Info().Str("pipeline", Name).Msg("no classifications to save")
		return nil
	}

	if err := b.p.classifications.SaveClassifications(ctx, b.analysisDate, rows); err != nil {
		return errors.Wrap(err, "save classifications")
	}

	if err := b.p.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Str("pipeline", Name).Msg("failed to invalidate planning cache")
	}
	return nil
}

// mergeWithSnapshot keeps the rows of products outside a partial batch when
// the stored snapshot is for the same analysis date.
func (b *batch) mergeWithSnapshot(ctx context.Context, rows []domain.ProductClassification) ([]domain.ProductClassification, error) {
	existing, err := b.p.classifications.GetLatestClassifications(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load current snapshot")
	}
	if len(existing) == 0 || !existing[0].AnalysisDate.Equal(b.analysisDate) {
		return rows, nil
	}

	fresh := make(map[int64]bool, len(rows))
	for _, r := range rows {
		fresh[r.ProductID] = true
	}
	merged := append([]domain.ProductClassification(nil), rows...)
	for _, r := range existing {
		if !fresh[r.ProductID] {
			merged = append(merged, r)
		}
	}
	return merged, nil
}
