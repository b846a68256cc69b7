package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/repository"
)

type classificationRepository struct {
	db *DB
}

func NewClassificationRepository(db *DB) repository.ClassificationRepository {
	return &classificationRepository{db: db}
}

func (r *classificationRepository) SaveClassifications(ctx context.Context, analysisDate time.Time, items []domain.ProductClassification) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM product_classifications WHERE analysis_date = $1`, analysisDate); err != nil {
			return fmt.Errorf("failed to clear classification snapshot: %w", err)
		}
		if len(items) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO product_classifications (
				analysis_date, product_id, abc_class, xyz_class, matrix_cell,
				revenue, coefficient_of_variation, priority
			) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, it := range items {
			if _, err := stmt.ExecContext(ctx,
				analysisDate,
				it.ProductID,
				it.ABCClass,
				it.XYZClass,
				it.MatrixCell,
				it.Revenue,
				it.CoefficientOfVariation,
				it.Priority,
			); err != nil {
				return fmt.Errorf("failed to insert classification for product %d: %w", it.ProductID, err)
			}
		}
		return nil
	})
}

func (r *classificationRepository) GetLatestClassifications(ctx context.Context) ([]domain.ProductClassification, error) {
	query := `
		SELECT
			analysis_date, product_id, abc_class,
			COALESCE(xyz_class, '') AS xyz_class,
			COALESCE(matrix_cell, '') AS matrix_cell,
			revenue,
			coefficient_of_variation::float8 AS coefficient_of_variation,
			priority
		FROM product_classifications
		WHERE analysis_date = (SELECT MAX(analysis_date) FROM product_classifications)
		ORDER BY priority, revenue DESC, product_id
	`

	var items []domain.ProductClassification
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("error getting latest classifications: %w", err)
	}
	return items, nil
}
