package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/andresuchdata/velorize/backend-go/internal/repository"
)

// maxConcurrentEvents bounds the number of events analysed at once; each
// analysis issues three sales queries.
const maxConcurrentEvents = 4

// EventImpactReport is one event's analysis. Error is set, and Impact left
// zero, when the event's sales could not be loaded.
type EventImpactReport struct {
	Event  domain.MarketingEvent      `json:"event"`
	Impact planning.EventImpactResult `json:"impact"`
	Error  string                     `json:"error,omitempty"`
}

type ImpactSummaryReport struct {
	Summary planning.ImpactSummary `json:"summary"`
	Events  []EventImpactReport    `json:"events"`
	// Failed counts events left out of Summary.
	Failed int `json:"failed"`
}

type MarketingService struct {
	marketing repository.MarketingRepository
	demand    repository.DemandRepository
}

func NewMarketingService(marketing repository.MarketingRepository, demand repository.DemandRepository) *MarketingService {
	return &MarketingService{marketing: marketing, demand: demand}
}

// EventImpact measures one event against equal-length windows before and after it.
func (s *MarketingService) EventImpact(ctx context.Context, id int64) (*EventImpactReport, error) {
	event, err := s.marketing.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	impact, err := planning.AnalyzeEventImpact(ctx, eventSpec(*event), s.fetchSales)
	if err != nil {
		return nil, errors.Wrapf(err, "event %d impact", id)
	}
	return &EventImpactReport{Event: *event, Impact: impact}, nil
}

// ImpactSummary analyses every completed event overlapping [from, to] and
// aggregates ROI across them. An event whose analysis fails is reported with
// its error and left out of the aggregate.
func (s *MarketingService) ImpactSummary(ctx context.Context, from, to *time.Time) (*ImpactSummaryReport, error) {
	events, err := s.marketing.ListEvents(ctx, domain.EventFilter{
		From:     from,
		To:       to,
		Statuses: []string{domain.EventStatusCompleted},
	})
	if err != nil {
		return nil, errors.Wrap(err, "list events")
	}

	reports := make([]EventImpactReport, len(events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEvents)
	for i, e := range events {
		g.Go(func() error {
			reports[i] = EventImpactReport{Event: e}
			impact, err := planning.AnalyzeEventImpact(gctx, eventSpec(e), s.fetchSales)
			if err != nil {
				log.Warn().Err(err).Int64("event_id", e.ID).Msg("marketing: event impact failed")
				reports[i].Error = errors.Wrapf(err, "event %d impact", e.ID).Error()
				return nil
			}
			reports[i].Impact = impact
			return nil
		})
	}
	_ = g.Wait()

	var (
		results []planning.EventImpactResult
		budgets []*float64
		failed  int
	)
	for _, r := range reports {
		if r.Error != "" {
			failed++
			continue
		}
		results = append(results, r.Impact)
		budgets = append(budgets, budgetOf(r.Event))
	}

	return &ImpactSummaryReport{
		Summary: planning.SummarizeImpacts(results, budgets),
		Events:  reports,
		Failed:  failed,
	}, nil
}

// fetchSales totals sales inside an inclusive window.
func (s *MarketingService) fetchSales(ctx context.Context, w planning.Window, customerIDs []int64) (planning.PeriodMetrics, error) {
	sales, err := s.demand.GetPeriodSales(ctx, w.Start, w.End.AddDate(0, 0, 1), customerIDs)
	if err != nil {
		return planning.PeriodMetrics{}, err
	}
	return planning.PeriodMetrics{
		Quantity:     sales.Quantity,
		Revenue:      sales.Revenue.InexactFloat64(),
		Transactions: sales.Transactions,
	}, nil
}

func eventSpec(e domain.MarketingEvent) planning.EventSpec {
	return planning.EventSpec{
		Start:       e.StartDate,
		End:         e.EndDate,
		CustomerIDs: e.TargetCustomerIDs,
		Budget:      budgetOf(e),
	}
}

func budgetOf(e domain.MarketingEvent) *float64 {
	if !e.Budget.Valid {
		return nil
	}
	b := e.Budget.Decimal.InexactFloat64()
	return &b
}
