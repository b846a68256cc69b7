package pipeline

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository handles database operations for pipeline tracking
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new pipeline repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ RunStore = (*Repository)(nil)

const runColumns = `id, pipeline_name, as_of, status, total_items, completed_items,
		       skipped_items, failed_items, total_rows, started_at, completed_at, error_message`

// CreateRun creates a new pipeline run record
func (r *Repository) CreateRun(ctx context.Context, run *PipelineRun) error {
	query := `
		INSERT INTO planning_runs (
			pipeline_name, as_of, status, total_items, completed_items,
			skipped_items, failed_items, total_rows, started_at, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx, query,
		run.PipelineName, run.AsOf, run.Status, run.TotalItems, run.CompletedItems,
		run.SkippedItems, run.FailedItems, run.TotalRows, run.StartedAt, run.ErrorMessage,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("error creating planning run: %w", err)
	}

	return nil
}

// UpdateRun updates an existing pipeline run
func (r *Repository) UpdateRun(ctx context.Context, run *PipelineRun) error {
	query := `
		UPDATE planning_runs
		SET status = $1, total_items = $2, completed_items = $3, skipped_items = $4,
		    failed_items = $5, total_rows = $6, completed_at = $7, error_message = $8
		WHERE id = $9
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.Status, run.TotalItems, run.CompletedItems, run.SkippedItems,
		run.FailedItems, run.TotalRows, run.CompletedAt, run.ErrorMessage, run.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating planning run %d: %w", run.ID, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*PipelineRun, error) {
	run := &PipelineRun{}
	err := row.Scan(
		&run.ID, &run.PipelineName, &run.AsOf, &run.Status, &run.TotalItems,
		&run.CompletedItems, &run.SkippedItems, &run.FailedItems, &run.TotalRows,
		&run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRun retrieves a pipeline run by ID
func (r *Repository) GetRun(ctx context.Context, id int64) (*PipelineRun, error) {
	query := `SELECT ` + runColumns + ` FROM planning_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("error getting planning run %d: %w", id, err)
	}

	return run, nil
}

// ListRuns returns the most recent runs, optionally for one pipeline
func (r *Repository) ListRuns(ctx context.Context, pipelineName string, limit int) ([]*PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + runColumns + ` FROM planning_runs WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if pipelineName != "" {
		query += fmt.Sprintf(" AND pipeline_name = $%d", argPos)
		args = append(args, pipelineName)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY started_at DESC, id DESC LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing planning runs: %w", err)
	}
	defer rows.Close()

	var runs []*PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning planning run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// CreateItemJob creates a new item job record
func (r *Repository) CreateItemJob(ctx context.Context, job *ItemJob) error {
	query := `
		INSERT INTO planning_run_items (
			run_id, product_id, status, message, rows_written, retry_count
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx, query,
		job.RunID, job.ProductID, job.Status, job.Message, job.Rows, job.RetryCount,
	).Scan(&job.ID)
	if err != nil {
		return fmt.Errorf("error creating run item for product %d: %w", job.ProductID, err)
	}

	return nil
}

// UpdateItemJob updates an item job
func (r *Repository) UpdateItemJob(ctx context.Context, job *ItemJob) error {
	query := `
		UPDATE planning_run_items
		SET status = $1, message = $2, rows_written = $3, processed_at = $4, retry_count = $5
		WHERE id = $6
	`

	_, err := r.db.ExecContext(
		ctx, query,
		job.Status, job.Message, job.Rows, job.ProcessedAt, job.RetryCount, job.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating run item %d: %w", job.ID, err)
	}

	return nil
}

const itemColumns = `id, run_id, product_id, status, message, rows_written, processed_at, retry_count`

func (r *Repository) queryItems(ctx context.Context, query string, args ...interface{}) ([]*ItemJob, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*ItemJob
	for rows.Next() {
		job := &ItemJob{}
		err := rows.Scan(
			&job.ID, &job.RunID, &job.ProductID, &job.Status, &job.Message,
			&job.Rows, &job.ProcessedAt, &job.RetryCount,
		)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// GetItemJobsByRunID retrieves all item jobs for a run
func (r *Repository) GetItemJobsByRunID(ctx context.Context, runID int64) ([]*ItemJob, error) {
	query := `SELECT ` + itemColumns + ` FROM planning_run_items WHERE run_id = $1 ORDER BY id`

	jobs, err := r.queryItems(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("error getting items for run %d: %w", runID, err)
	}

	return jobs, nil
}

// GetFailedItemJobs retrieves failed items that haven't exceeded retry limit
func (r *Repository) GetFailedItemJobs(ctx context.Context, pipelineName string, maxRetries int) ([]*ItemJob, error) {
	query := `
		SELECT i.id, i.run_id, i.product_id, i.status, i.message, i.rows_written, i.processed_at, i.retry_count
		FROM planning_run_items i
		JOIN planning_runs r ON r.id = i.run_id
		WHERE r.pipeline_name = $1
		  AND i.status = $2
		  AND i.retry_count < $3
		ORDER BY i.run_id, i.id
	`

	jobs, err := r.queryItems(ctx, query, pipelineName, ItemFailed, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("error getting failed items for %s: %w", pipelineName, err)
	}

	return jobs, nil
}
