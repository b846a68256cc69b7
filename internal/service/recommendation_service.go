package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/andresuchdata/velorize/backend-go/internal/repository"
)

type RecommendationReport struct {
	Recommendations []planning.Recommendation      `json:"recommendations"`
	Summary         planning.RecommendationSummary `json:"summary"`
}

type RecommendationService struct {
	inventory repository.InventoryRepository
	demand    repository.DemandRepository
	now       func() time.Time
}

func NewRecommendationService(inventory repository.InventoryRepository, demand repository.DemandRepository) *RecommendationService {
	return &RecommendationService{
		inventory: inventory,
		demand:    demand,
		now:       time.Now,
	}
}

// Recommendations ranks every stocked product, most urgent first. Each call
// reads current stock and trailing sales.
func (s *RecommendationService) Recommendations(ctx context.Context, filter domain.RecommendationFilter) (*RecommendationReport, error) {
	filter.Urgency = strings.ToLower(strings.TrimSpace(filter.Urgency))

	recs, err := s.compute(ctx, filter)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []planning.Recommendation{}
	}
	return &RecommendationReport{
		Recommendations: recs,
		Summary:         planning.SummarizeRecommendations(recs),
	}, nil
}

func (s *RecommendationService) compute(ctx context.Context, filter domain.RecommendationFilter) ([]planning.Recommendation, error) {
	asOf := s.now().UTC()
	since := asOf.AddDate(0, 0, -planning.TrailingDemandDays)

	var (
		positions []domain.StockPosition
		trailing  []domain.TrailingDemand
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		positions, err = s.inventory.GetStockPositions(gctx, filter.ProductIDs)
		return err
	})
	g.Go(func() error {
		var err error
		trailing, err = s.demand.GetTrailingDemand(gctx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "recommendations")
	}

	demand := make(map[int64]float64, len(trailing))
	for _, t := range trailing {
		demand[t.ProductID] = t.Quantity
	}

	recs := make([]planning.Recommendation, 0, len(positions))
	for _, pos := range positions {
		rec := planning.RankRecommendation(planning.StockSignal{
			ProductID:     pos.ProductID,
			CurrentStock:  pos.CurrentStock,
			ReorderLevel:  pos.ReorderLevel,
			DailyDemand:   planning.DailyDemandFromTrailing(demand[pos.ProductID]),
			NearestExpiry: pos.NearestExpiry,
			AsOf:          asOf,
		})
		if filter.Urgency != "" && string(rec.Urgency) != filter.Urgency {
			continue
		}
		recs = append(recs, rec)
	}

	planning.SortRecommendations(recs)
	if filter.Limit > 0 && len(recs) > filter.Limit {
		recs = recs[:filter.Limit]
	}
	return recs, nil
}
