package forecast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/velorize/backend-go/internal/config"
	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/metrics"
	"github.com/andresuchdata/velorize/backend-go/internal/pipeline"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/andresuchdata/velorize/backend-go/internal/repository"
)

// Name is the run-tracking name of the forecast pipeline.
const Name = "forecast"

// MinHistoryPoints is the fewest monthly observations a product needs before
// it gets a forecast.
const MinHistoryPoints = 3

const defaultConfidenceLevel = 0.95

// Config controls forecast generation.
type Config struct {
	ForecastPeriods   int
	HistoricalPeriods int
	Method            planning.Method
	Params            planning.Params
	ConfidenceLevel   float64
	Sink              pipeline.PipelineConfig
}

// ConfigFrom builds a Config from the application settings.
func ConfigFrom(cfg *config.Config) (Config, error) {
	method, err := planning.ParseMethod(cfg.Planning.ForecastMethod)
	if err != nil {
		return Config{}, err
	}
	return Config{
		ForecastPeriods:   cfg.Planning.ForecastPeriods,
		HistoricalPeriods: cfg.Planning.HistoricalPeriods,
		Method:            method,
		Params:            planning.DefaultParams(),
		ConfidenceLevel:   defaultConfidenceLevel,
		Sink:              pipeline.ConfigFrom(Name, cfg.Pipeline),
	}, nil
}

// ForecastPipeline implements pipeline.Pipeline by forecasting each product's
// monthly demand and saving the results through a buffered sink.
type ForecastPipeline struct {
	config    Config
	products  repository.ProductRepository
	demand    repository.DemandRepository
	marketing repository.MarketingRepository
	forecasts repository.ForecastRepository
	metrics   *metrics.Recorder
}

// NewForecastPipeline creates a new forecast pipeline instance.
func NewForecastPipeline(
	cfg Config,
	products repository.ProductRepository,
	demand repository.DemandRepository,
	marketing repository.MarketingRepository,
	forecasts repository.ForecastRepository,
	rec *metrics.Recorder,
) *ForecastPipeline {
	if cfg.ForecastPeriods < 1 {
		cfg.ForecastPeriods = 1
	}
	if cfg.HistoricalPeriods < MinHistoryPoints {
		cfg.HistoricalPeriods = 24
	}
	if cfg.ConfidenceLevel == 0 {
		cfg.ConfidenceLevel = defaultConfidenceLevel
	}
	if cfg.Sink.Name == "" {
		cfg.Sink = pipeline.DefaultPipelineConfig(Name)
	}
	return &ForecastPipeline{
		config:    cfg,
		products:  products,
		demand:    demand,
		marketing: marketing,
		forecasts: forecasts,
		metrics:   rec,
	}
}

// Name returns the unique identifier of this pipeline.
func (p *ForecastPipeline) Name() string {
	return Name
}

// Prepare resolves the product set and loads the marketing calendar covering
// the forecast horizon.
func (p *ForecastPipeline) Prepare(ctx context.Context, asOf time.Time, productIDs []int64) (pipeline.Batch, error) {
	ids := productIDs
	if len(ids) == 0 {
		var err error
		ids, err = p.products.ListActiveProductIDs(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "list products")
		}
	}

	monthStart, _ := planning.MonthBounds(asOf)
	firstPeriod := monthStart.AddDate(0, 1, 0)
	horizonEnd := firstPeriod.AddDate(0, p.config.ForecastPeriods, -1)

	events, err := p.marketing.ListActiveEventsBetween(ctx, firstPeriod, horizonEnd)
	if err != nil {
		return nil, errors.Wrap(err, "load marketing calendar")
	}

	scheduled := make([]planning.ScheduledEvent, 0, len(events))
	for _, e := range events {
		scheduled = append(scheduled, planning.ScheduledEvent{
			Name:  e.CampaignName,
			Type:  planning.EventType(e.EventType),
			Start: e.StartDate,
			End:   e.EndDate,
		})
	}

	log.Info().
		Str("pipeline", Name).
		Int("products", len(ids)).
		Int("events", len(scheduled)).
		Time("first_period", firstPeriod).
		Msg("prepared forecast batch")

	return &batch{
		p:           p,
		ids:         ids,
		events:      scheduled,
		firstPeriod: firstPeriod,
		historyFrom: firstPeriod.AddDate(0, -p.config.HistoricalPeriods, 0),
		historyTo:   firstPeriod,
		sink:        pipeline.NewBufferedSink(p.config.Sink, p.forecasts.SaveForecasts, forecastProduct),
	}, nil
}

type batch struct {
	p           *ForecastPipeline
	ids         []int64
	events      []planning.ScheduledEvent
	firstPeriod time.Time
	historyFrom time.Time
	historyTo   time.Time
	sink        *pipeline.BufferedSink[domain.DemandForecast]
}

func (b *batch) Items() []int64 {
	return b.ids
}

// Process forecasts one product over the configured horizon.
func (b *batch) Process(ctx context.Context, productID int64) (pipeline.ItemResult, error) {
	cfg := b.p.config

	points, err := b.p.demand.GetMonthlyDemand(ctx, productID, b.historyFrom, b.historyTo)
	if err != nil {
		return pipeline.ItemResult{}, errors.Wrapf(err, "load demand for product %d", productID)
	}
	if len(points) < MinHistoryPoints {
		return pipeline.ItemResult{
			Skipped: true,
			Reason:  fmt.Sprintf("insufficient history: %d monthly points, need %d", len(points), MinHistoryPoints),
		}, nil
	}

	series := make([]float64, len(points))
	for i, pt := range points {
		series[i] = pt.Quantity
	}

	start := time.Now()
	results, err := planning.ForecastHorizon(series, cfg.Method, cfg.Params, cfg.ForecastPeriods)
	if err != nil {
		b.p.metrics.ForecastFailed(string(cfg.Method))
		return pipeline.ItemResult{}, errors.Wrapf(err, "forecast product %d", productID)
	}
	b.p.metrics.ForecastComputed(string(results[0].MethodUsed), time.Since(start))

	records := make([]domain.DemandForecast, 0, len(results))
	for i, r := range results {
		period := b.firstPeriod.AddDate(0, i, 0)
		records = append(records, BuildRecord(productID, period, r, planning.MarketingAdjustment(b.events, period), cfg.ConfidenceLevel))
	}

	b.sink.Add(ctx, records...)
	return pipeline.ItemResult{Rows: len(records)}, nil
}

func (b *batch) Finalize(ctx context.Context) error {
	b.sink.Finalize(ctx)
	return nil
}

// Rejected reports products whose forecasts the repository refused.
func (b *batch) Rejected() map[int64]error {
	return b.sink.Rejected()
}

func forecastProduct(f domain.DemandForecast) int64 {
	return f.ProductID
}

// BuildRecord turns a statistical forecast and the month's marketing
// adjustment into a persisted forecast row. Bounds are scaled with the point
// forecast so they keep bracketing it.
func BuildRecord(productID int64, period time.Time, r planning.ForecastResult, adj planning.Adjustment, confidence float64) domain.DemandForecast {
	factor := adj.Factor
	if factor <= 0 {
		factor = 1
	}

	params := make(domain.ForecastParameters, len(r.Parameters)+2)
	for k, v := range r.Parameters {
		params[k] = v
	}
	if factor != 1 {
		params["marketing_factor"] = planning.RoundTo(factor, 4)
	}
	if r.AutoSelected {
		params["auto_selected"] = 1
	}

	rec := domain.DemandForecast{
		ProductID:        productID,
		Period:           period,
		Quantity:         planning.RoundTo(r.PointForecast*factor, 2),
		BaselineQuantity: planning.RoundTo(r.PointForecast, 2),
		Method:           string(r.MethodUsed),
		Parameters:       params,
		ConfidenceLevel:  confidence,
		Status:           domain.ForecastStatusActive,
	}
	if r.LowerBound != nil {
		lower := planning.RoundTo(*r.LowerBound*factor, 2)
		rec.LowerBound = &lower
	}
	if r.UpperBound != nil {
		upper := planning.RoundTo(*r.UpperBound*factor, 2)
		rec.UpperBound = &upper
	}

	if len(adj.Events) > 0 {
		names := make([]string, len(adj.Events))
		for i, e := range adj.Events {
			names[i] = e.Name
		}
		rec.Notes = "marketing adjustment: " + strings.Join(names, ", ")
	}

	return rec
}
