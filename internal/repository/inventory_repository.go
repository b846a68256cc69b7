package repository

import (
	"context"
	"fmt"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type InventoryRepository interface {
	// GetStockPositions returns on-hand stock for the given active products, or
	// for every active product when productIDs is empty.
	GetStockPositions(ctx context.Context, productIDs []int64) ([]domain.StockPosition, error)
}

type inventoryRepository struct {
	db *sqlx.DB
}

func NewInventoryRepository(db *sqlx.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) GetStockPositions(ctx context.Context, productIDs []int64) ([]domain.StockPosition, error) {
	query := `
		SELECT
			p.id AS product_id,
			p.name AS product_name,
			COALESCE(SUM(s.quantity), 0)::float8 AS current_stock,
			p.reorder_level::float8 AS reorder_level,
			p.lead_time_days,
			p.cost_price AS unit_cost,
			MIN(s.expiry_date) FILTER (WHERE s.quantity > 0) AS nearest_expiry
		FROM products p
		LEFT JOIN inventory_stock s ON s.product_id = p.id
		WHERE p.status = 'active'
	`
	var args []interface{}
	if len(productIDs) > 0 {
		query += " AND p.id = ANY($1::bigint[])"
		args = append(args, pq.Array(productIDs))
	}
	query += " GROUP BY p.id ORDER BY p.id"

	var positions []domain.StockPosition
	if err := r.db.SelectContext(ctx, &positions, query, args...); err != nil {
		return nil, fmt.Errorf("error getting stock positions: %w", err)
	}
	return positions, nil
}
