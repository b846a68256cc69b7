package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/repository"
)

const defaultForecastPageSize = 100

type forecastRepository struct {
	db *DB
}

func NewForecastRepository(db *DB) repository.ForecastRepository {
	return &forecastRepository{db: db}
}

func (r *forecastRepository) SaveForecasts(ctx context.Context, forecasts []domain.DemandForecast) error {
	if len(forecasts) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		supersede, err := tx.PrepareContext(ctx, `
			UPDATE demand_forecasts
			SET status = 'inactive'
			WHERE product_id = $1 AND forecast_period = $2 AND status = 'active'
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare supersede statement: %w", err)
		}
		defer supersede.Close()

		insert, err := tx.PrepareContext(ctx, `
			INSERT INTO demand_forecasts (
				product_id, forecast_period, forecast_quantity, baseline_quantity,
				lower_bound, upper_bound, method, method_parameters,
				confidence_level, status, notes, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert statement: %w", err)
		}
		defer insert.Close()

		for _, f := range forecasts {
			if _, err := supersede.ExecContext(ctx, f.ProductID, f.Period); err != nil {
				return fmt.Errorf("failed to supersede forecast for product %d: %w", f.ProductID, err)
			}

			status := f.Status
			if status == "" {
				status = domain.ForecastStatusActive
			}
			if _, err := insert.ExecContext(ctx,
				f.ProductID,
				f.Period,
				f.Quantity,
				f.BaselineQuantity,
				f.LowerBound,
				f.UpperBound,
				f.Method,
				f.Parameters,
				f.ConfidenceLevel,
				status,
				f.Notes,
			); err != nil {
				return fmt.Errorf("failed to insert forecast for product %d: %w", f.ProductID, err)
			}
		}
		return nil
	})
}

func (r *forecastRepository) ListForecasts(ctx context.Context, filter domain.ForecastFilter) ([]domain.DemandForecast, int, error) {
	where, args, next := buildForecastFilterClause(filter, "f", 1)

	var total int
	countQuery := "SELECT COUNT(*) FROM demand_forecasts f WHERE 1=1" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting forecasts: %w", err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultForecastPageSize
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	query := `
		SELECT
			f.id, f.product_id, f.forecast_period, f.forecast_quantity::float8 AS forecast_quantity,
			f.baseline_quantity::float8 AS baseline_quantity,
			f.lower_bound::float8 AS lower_bound, f.upper_bound::float8 AS upper_bound,
			f.method, f.method_parameters, f.confidence_level::float8 AS confidence_level,
			f.status, COALESCE(f.notes, '') AS notes, f.created_at
		FROM demand_forecasts f
		WHERE 1=1` + where + fmt.Sprintf(`
		ORDER BY f.forecast_period, f.product_id
		LIMIT $%d OFFSET $%d`, next, next+1)
	args = append(args, pageSize, (page-1)*pageSize)

	var forecasts []domain.DemandForecast
	if err := r.db.SelectContext(ctx, &forecasts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error getting forecasts: %w", err)
	}
	return forecasts, total, nil
}

func (r *forecastRepository) DeactivateForecast(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE demand_forecasts SET status = 'inactive' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deactivating forecast %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error deactivating forecast %d: %w", id, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *forecastRepository) GetForecastActuals(ctx context.Context, from, to time.Time, productID *int64) ([]domain.ForecastActualRow, error) {
	query := `
		SELECT
			f.id AS forecast_id,
			f.product_id,
			f.forecast_period,
			f.method,
			f.forecast_quantity::float8 AS forecast_quantity,
			COALESCE(SUM(st.quantity), 0)::float8 AS actual_quantity
		FROM demand_forecasts f
		LEFT JOIN sales_transactions st
			ON st.product_id = f.product_id
		   AND date_trunc('month', st.transaction_date) = date_trunc('month', f.forecast_period)
		WHERE f.status = 'active'
		  AND f.forecast_period >= $1
		  AND f.forecast_period <= $2
	`
	args := []interface{}{from, to}
	if productID != nil {
		query += " AND f.product_id = $3"
		args = append(args, *productID)
	}
	query += " GROUP BY f.id ORDER BY f.forecast_period, f.product_id"

	var rows []domain.ForecastActualRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting forecast actuals: %w", err)
	}
	return rows, nil
}
