package repository

import (
	"context"
	"fmt"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type ProductRepository interface {
	ListActiveProductIDs(ctx context.Context) ([]int64, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)
}

type productRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) ListActiveProductIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM products WHERE status = 'active' ORDER BY id`); err != nil {
		return nil, fmt.Errorf("error listing active products: %w", err)
	}
	return ids, nil
}

func (r *productRepository) GetProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, code, name, status, cost_price, selling_price,
		       reorder_level::float8 AS reorder_level, lead_time_days
		FROM products
		WHERE id = ANY($1::bigint[])
		ORDER BY id
	`

	var products []domain.Product
	if err := r.db.SelectContext(ctx, &products, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("error getting products: %w", err)
	}
	return products, nil
}
