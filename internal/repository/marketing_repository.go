package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type MarketingRepository interface {
	GetEvent(ctx context.Context, id int64) (*domain.MarketingEvent, error)
	ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.MarketingEvent, error)
	// ListActiveEventsBetween returns planned or active events overlapping [from, to].
	ListActiveEventsBetween(ctx context.Context, from, to time.Time) ([]domain.MarketingEvent, error)
}

type marketingRepository struct {
	db *sqlx.DB
}

func NewMarketingRepository(db *sqlx.DB) MarketingRepository {
	return &marketingRepository{db: db}
}

const eventColumns = `
	id, campaign_name, event_type, start_date, end_date, budget,
	COALESCE(target_customer_ids, '{}') AS target_customer_ids, status
`

type eventRow struct {
	domain.MarketingEvent
	TargetCustomerIDs pq.Int64Array `db:"target_customer_ids"`
}

func (row eventRow) toDomain() domain.MarketingEvent {
	e := row.MarketingEvent
	e.TargetCustomerIDs = []int64(row.TargetCustomerIDs)
	return e
}

func (r *marketingRepository) GetEvent(ctx context.Context, id int64) (*domain.MarketingEvent, error) {
	var row eventRow
	err := r.db.GetContext(ctx, &row, "SELECT "+eventColumns+" FROM marketing_events WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting marketing event %d: %w", id, err)
	}

	event := row.toDomain()
	return &event, nil
}

func (r *marketingRepository) ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.MarketingEvent, error) {
	query := "SELECT " + eventColumns + " FROM marketing_events WHERE 1=1"

	var args []interface{}
	var conditions []string
	argCounter := 1

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("end_date >= $%d", argCounter))
		args = append(args, *filter.From)
		argCounter++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d", argCounter))
		args = append(args, *filter.To)
		argCounter++
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d::text[])", argCounter))
		args = append(args, pq.Array(filter.Statuses))
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_date, id"

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error listing marketing events: %w", err)
	}

	events := make([]domain.MarketingEvent, len(rows))
	for i, row := range rows {
		events[i] = row.toDomain()
	}
	return events, nil
}

func (r *marketingRepository) ListActiveEventsBetween(ctx context.Context, from, to time.Time) ([]domain.MarketingEvent, error) {
	return r.ListEvents(ctx, domain.EventFilter{
		From:     &from,
		To:       &to,
		Statuses: []string{domain.EventStatusPlanned, domain.EventStatusActive},
	})
}
