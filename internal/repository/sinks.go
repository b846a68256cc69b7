package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
)

// ForecastRepository persists generated forecasts. SaveForecasts supersedes any
// active forecast for the same product and month and leaves the rest untouched.
type ForecastRepository interface {
	SaveForecasts(ctx context.Context, forecasts []domain.DemandForecast) error
	ListForecasts(ctx context.Context, filter domain.ForecastFilter) ([]domain.DemandForecast, int, error)
	DeactivateForecast(ctx context.Context, id int64) error
	GetForecastActuals(ctx context.Context, from, to time.Time, productID *int64) ([]domain.ForecastActualRow, error)
}

// ClassificationRepository persists dated ABC-XYZ snapshots. Saving a date
// replaces that date's snapshot.
type ClassificationRepository interface {
	SaveClassifications(ctx context.Context, analysisDate time.Time, items []domain.ProductClassification) error
	GetLatestClassifications(ctx context.Context) ([]domain.ProductClassification, error)
}
