package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DemandRepository reads historical sales in the shapes the planning engine consumes.
// All ranges are half-open: from inclusive, to exclusive.
type DemandRepository interface {
	GetMonthlyDemand(ctx context.Context, productID int64, from, to time.Time) ([]domain.DemandPoint, error)
	GetDailyDemand(ctx context.Context, from, to time.Time, productIDs []int64) ([]domain.DailyDemand, error)
	GetRevenueByProduct(ctx context.Context, from, to time.Time) ([]domain.ProductRevenue, error)
	GetProductSales(ctx context.Context, from, to time.Time) ([]domain.ProductSales, error)
	GetPeriodSales(ctx context.Context, from, to time.Time, customerIDs []int64) (domain.PeriodSales, error)
	GetTrailingDemand(ctx context.Context, since time.Time) ([]domain.TrailingDemand, error)
}

type demandRepository struct {
	db *sqlx.DB
}

func NewDemandRepository(db *sqlx.DB) DemandRepository {
	return &demandRepository{db: db}
}

func (r *demandRepository) GetMonthlyDemand(ctx context.Context, productID int64, from, to time.Time) ([]domain.DemandPoint, error) {
	query := `
		SELECT
			date_trunc('month', transaction_date)::date AS period,
			SUM(quantity)::float8 AS quantity,
			COALESCE(SUM(total_amount), 0) AS revenue
		FROM sales_transactions
		WHERE product_id = $1
		  AND transaction_date >= $2
		  AND transaction_date < $3
		GROUP BY 1
		ORDER BY 1
	`

	var points []domain.DemandPoint
	if err := r.db.SelectContext(ctx, &points, query, productID, from, to); err != nil {
		return nil, fmt.Errorf("error getting monthly demand for product %d: %w", productID, err)
	}
	return points, nil
}

func (r *demandRepository) GetDailyDemand(ctx context.Context, from, to time.Time, productIDs []int64) ([]domain.DailyDemand, error) {
	query := `
		SELECT
			product_id,
			transaction_date::date AS day,
			SUM(quantity)::float8 AS quantity
		FROM sales_transactions
		WHERE transaction_date >= $1
		  AND transaction_date < $2
	`
	args := []interface{}{from, to}
	if len(productIDs) > 0 {
		query += " AND product_id = ANY($3::bigint[])"
		args = append(args, pq.Array(productIDs))
	}
	query += " GROUP BY product_id, day ORDER BY product_id, day"

	var rows []domain.DailyDemand
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting daily demand: %w", err)
	}
	return rows, nil
}

func (r *demandRepository) GetRevenueByProduct(ctx context.Context, from, to time.Time) ([]domain.ProductRevenue, error) {
	query := `
		SELECT
			st.product_id,
			COALESCE(SUM(st.total_amount), 0) AS revenue
		FROM sales_transactions st
		JOIN products p ON p.id = st.product_id
		WHERE st.transaction_date >= $1
		  AND st.transaction_date < $2
		  AND p.status = 'active'
		GROUP BY st.product_id
		ORDER BY revenue DESC, st.product_id
	`

	var rows []domain.ProductRevenue
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("error getting revenue by product: %w", err)
	}
	return rows, nil
}

func (r *demandRepository) GetProductSales(ctx context.Context, from, to time.Time) ([]domain.ProductSales, error) {
	query := `
		SELECT
			p.id AS product_id,
			COALESCE(SUM(st.quantity), 0)::float8 AS quantity,
			COALESCE(SUM(st.total_amount), 0) AS revenue,
			COALESCE(SUM(st.quantity * p.cost_price), 0) AS cost,
			COALESCE(AVG(st.unit_price), 0) AS avg_price
		FROM products p
		LEFT JOIN sales_transactions st
			ON st.product_id = p.id
		   AND st.transaction_date >= $1
		   AND st.transaction_date < $2
		WHERE p.status = 'active'
		GROUP BY p.id
		ORDER BY p.id
	`

	var rows []domain.ProductSales
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("error getting product sales: %w", err)
	}
	return rows, nil
}

func (r *demandRepository) GetPeriodSales(ctx context.Context, from, to time.Time, customerIDs []int64) (domain.PeriodSales, error) {
	query := `
		SELECT
			COALESCE(SUM(quantity), 0)::float8 AS quantity,
			COALESCE(SUM(total_amount), 0) AS revenue,
			COUNT(*) AS transactions
		FROM sales_transactions
		WHERE transaction_date >= $1
		  AND transaction_date < $2
	`
	args := []interface{}{from, to}
	if len(customerIDs) > 0 {
		query += " AND customer_id = ANY($3::bigint[])"
		args = append(args, pq.Array(customerIDs))
	}

	var sales domain.PeriodSales
	if err := r.db.GetContext(ctx, &sales, query, args...); err != nil {
		return domain.PeriodSales{}, fmt.Errorf("error getting period sales: %w", err)
	}
	return sales, nil
}

func (r *demandRepository) GetTrailingDemand(ctx context.Context, since time.Time) ([]domain.TrailingDemand, error) {
	query := `
		SELECT
			product_id,
			SUM(quantity)::float8 AS quantity
		FROM sales_transactions
		WHERE transaction_date >= $1
		GROUP BY product_id
	`

	var rows []domain.TrailingDemand
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("error getting trailing demand: %w", err)
	}
	return rows, nil
}
