package service

import (
	"context"
	"errors"
	"testing"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
)

func TestForecastPreview(t *testing.T) {
	s := NewForecastService(&fakeForecasts{}, &fakeRunner{}, nil)
	series := []float64{10, 20, 30, 40}

	tests := []struct {
		name    string
		req     PreviewRequest
		wantLen int
		wantErr error
	}{
		{"default horizon", PreviewRequest{Series: series, Method: "moving_average"}, 1, nil},
		{"auto horizon", PreviewRequest{Series: series, Horizon: 3}, 3, nil},
		{"unknown method", PreviewRequest{Series: series, Method: "arima"}, 0, planning.ErrUnknownMethod},
		{"horizon too long", PreviewRequest{Series: series, Horizon: 25}, 0, planning.ErrInvalidParameter},
		{"empty series", PreviewRequest{Method: "linear_trend"}, 0, planning.ErrEmptySeries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Preview(tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Preview: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("got %d results, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestForecastGenerate(t *testing.T) {
	runner := &fakeRunner{}
	s := NewForecastService(&fakeForecasts{}, runner, nil)
	s.now = clock

	report, err := s.Generate(context.Background(), []int64{4, 5})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if report.Total != 2 {
		t.Errorf("report total = %d, want 2", report.Total)
	}
	if len(runner.productIDs) != 2 || runner.productIDs[0] != 4 {
		t.Errorf("runner got products %v", runner.productIDs)
	}
	if len(runner.pipelines) != 1 {
		t.Errorf("runner got %d pipelines, want 1", len(runner.pipelines))
	}
}

func TestForecastAccuracy(t *testing.T) {
	f := &fakeForecasts{actuals: []domain.ForecastActualRow{
		{ForecastID: 1, ProductID: 1, Method: "moving_average", Forecast: 110, ActualQuantity: 100},
		{ForecastID: 2, ProductID: 1, Method: "moving_average", Forecast: 90, ActualQuantity: 100},
	}}
	s := NewForecastService(f, &fakeRunner{}, nil)

	report, err := s.Accuracy(context.Background(), day(1, 1), day(7, 1), nil)
	if err != nil {
		t.Fatalf("Accuracy: %v", err)
	}
	if report.Evaluated != 2 || report.MAE == nil || *report.MAE != 10 {
		t.Errorf("report = %+v, want 2 evaluated with MAE 10", report)
	}
	if len(report.Details) != 2 || report.Details[0].ForecastID != 1 || report.Details[0].Actual != 100 {
		t.Errorf("details = %+v", report.Details)
	}
}
