package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/pipeline"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/andresuchdata/velorize/backend-go/internal/repository"
)

const maxPreviewHorizon = 24

// PreviewRequest forecasts an explicit series without touching storage.
type PreviewRequest struct {
	Series  []float64
	Method  string
	Params  planning.Params
	Horizon int
}

// BatchRunner runs pipelines over a product set. pipeline.Orchestrator satisfies it.
type BatchRunner interface {
	RunItems(ctx context.Context, asOf time.Time, productIDs []int64, pipelines ...pipeline.Pipeline) ([]*pipeline.RunReport, error)
}

type ForecastService struct {
	forecasts repository.ForecastRepository
	runner    BatchRunner
	generator pipeline.Pipeline
	now       func() time.Time
}

func NewForecastService(forecasts repository.ForecastRepository, runner BatchRunner, generator pipeline.Pipeline) *ForecastService {
	return &ForecastService{
		forecasts: forecasts,
		runner:    runner,
		generator: generator,
		now:       time.Now,
	}
}

// Preview returns one result per period up to the horizon.
func (s *ForecastService) Preview(req PreviewRequest) ([]planning.ForecastResult, error) {
	method, err := planning.ParseMethod(req.Method)
	if err != nil {
		return nil, err
	}
	horizon := req.Horizon
	if horizon <= 0 {
		horizon = 1
	}
	if horizon > maxPreviewHorizon {
		return nil, errors.Wrapf(planning.ErrInvalidParameter, "horizon %d exceeds %d", horizon, maxPreviewHorizon)
	}
	return planning.ForecastHorizon(req.Series, method, req.Params, horizon)
}

// Generate runs the forecast pipeline now for the given products, or for
// every active product when none are given.
func (s *ForecastService) Generate(ctx context.Context, productIDs []int64) (*pipeline.RunReport, error) {
	reports, err := s.runner.RunItems(ctx, s.now().UTC(), productIDs, s.generator)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, errors.New("forecast pipeline produced no report")
	}
	return reports[0], nil
}

func (s *ForecastService) List(ctx context.Context, filter domain.ForecastFilter) ([]domain.DemandForecast, int, error) {
	return s.forecasts.ListForecasts(ctx, filter)
}

func (s *ForecastService) Deactivate(ctx context.Context, id int64) error {
	return s.forecasts.DeactivateForecast(ctx, id)
}

// Accuracy compares forecasts for months in [from, to) with what was sold.
func (s *ForecastService) Accuracy(ctx context.Context, from, to time.Time, productID *int64) (planning.AccuracyReport, error) {
	rows, err := s.forecasts.GetForecastActuals(ctx, from, to, productID)
	if err != nil {
		return planning.AccuracyReport{}, errors.Wrap(err, "forecast accuracy")
	}

	pairs := make([]planning.ForecastActual, len(rows))
	for i, r := range rows {
		pairs[i] = planning.ForecastActual{
			ForecastID: r.ForecastID,
			ProductID:  r.ProductID,
			Method:     r.Method,
			Forecast:   r.Forecast,
			Actual:     r.ActualQuantity,
		}
	}
	return planning.EvaluateAccuracy(pairs), nil
}
