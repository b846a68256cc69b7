package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/velorize/backend-go/internal/metrics"
)

// Worker runs a pipeline's items through a bounded goroutine pool
type Worker struct {
	pipeline Pipeline
	config   PipelineConfig
	store    RunStore
	metrics  *metrics.Recorder
	now      func() time.Time
}

// NewWorker creates a new pipeline worker. A nil recorder disables metrics.
func NewWorker(pipeline Pipeline, config PipelineConfig, store RunStore, rec *metrics.Recorder) *Worker {
	return &Worker{
		pipeline: pipeline,
		config:   config,
		store:    store,
		metrics:  rec,
		now:      time.Now,
	}
}

// Run prepares the pipeline for asOf and processes every item. The returned
// error is non-nil only when the run could not be set up; item failures are
// reported through the RunReport.
func (w *Worker) Run(ctx context.Context, asOf time.Time, productIDs []int64) (*RunReport, error) {
	name := w.pipeline.Name()
	started := w.now()

	run := &PipelineRun{
		PipelineName: name,
		AsOf:         asOf,
		Status:       StatusPending,
		StartedAt:    started,
	}
	if err := w.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create pipeline run: %w", err)
	}

	log.Info().Str("pipeline", name).Int64("run_id", run.ID).Time("as_of", asOf).Msg("starting pipeline run")

	batch, err := w.pipeline.Prepare(ctx, asOf, productIDs)
	if err != nil {
		w.failRun(ctx, run, fmt.Errorf("prepare: %w", err))
		return w.report(run, nil), err
	}

	items := batch.Items()
	jobs := make([]*ItemJob, len(items))
	for i, id := range items {
		job := &ItemJob{RunID: run.ID, ProductID: id, Status: ItemQueued}
		if err := w.store.CreateItemJob(ctx, job); err != nil {
			err = fmt.Errorf("failed to create item job: %w", err)
			w.failRun(ctx, run, err)
			return w.report(run, nil), err
		}
		jobs[i] = job
	}

	run.Status = StatusProcessing
	run.TotalItems = len(jobs)
	if err := w.store.UpdateRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("pipeline", name).Msg("failed to mark run processing")
	}

	outcomes := w.processItemsParallel(ctx, batch, jobs)
	outcomes = w.finish(ctx, run, batch, jobs, outcomes)
	return w.report(run, outcomes), nil
}

// processItemsParallel processes jobs using a worker pool. The outcome slice
// is index-aligned with jobs.
func (w *Worker) processItemsParallel(ctx context.Context, batch Batch, jobs []*ItemJob) []ItemOutcome {
	workerCount := w.config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	outcomes := make([]ItemOutcome, len(jobs))
	jobChan := make(chan int, len(jobs))
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobChan {
				outcomes[idx] = w.processItem(ctx, batch, jobs[idx])
				if outcomes[idx].Status == ItemFailed {
					log.Warn().Err(outcomes[idx].Err).
						Str("pipeline", w.pipeline.Name()).
						Int("worker", workerID).
						Int64("product_id", jobs[idx].ProductID).
						Msg("item failed")
				}
			}
		}(i)
	}

	enqueued := 0
enqueue:
	for idx := range jobs {
		select {
		case <-ctx.Done():
			break enqueue
		case jobChan <- idx:
			enqueued++
		}
	}
	close(jobChan)
	wg.Wait()

	// Items that never reached a worker.
	for idx := enqueued; idx < len(jobs); idx++ {
		outcomes[idx] = w.markJobFailed(ctx, jobs[idx], fmt.Errorf("not started: %w", ctx.Err()))
	}

	return outcomes
}

// processItem processes a single product
func (w *Worker) processItem(ctx context.Context, batch Batch, job *ItemJob) ItemOutcome {
	if err := ctx.Err(); err != nil {
		return w.markJobFailed(ctx, job, fmt.Errorf("not started: %w", err))
	}

	job.Status = ItemProcessing
	if err := w.store.UpdateItemJob(ctx, job); err != nil {
		log.Warn().Err(err).Str("pipeline", w.pipeline.Name()).Int64("product_id", job.ProductID).Msg("failed to update item job")
	}

	result, err := w.safeProcess(ctx, batch, job.ProductID)
	if err != nil {
		return w.markJobFailed(ctx, job, err)
	}

	now := w.now()
	job.ProcessedAt = &now
	job.Rows = result.Rows
	job.Message = result.Reason
	job.Status = ItemCompleted
	if result.Skipped {
		job.Status = ItemSkipped
	}
	if err := w.store.UpdateItemJob(ctx, job); err != nil {
		log.Warn().Err(err).Str("pipeline", w.pipeline.Name()).Int64("product_id", job.ProductID).Msg("failed to update item job")
	}

	w.metrics.ItemProcessed(w.pipeline.Name(), string(job.Status))
	return ItemOutcome{
		ProductID: job.ProductID,
		Status:    job.Status,
		Reason:    result.Reason,
		Rows:      result.Rows,
	}
}

// safeProcess turns a panic inside Process into an item failure.
func (w *Worker) safeProcess(ctx context.Context, batch Batch, productID int64) (result ItemResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing product %d: %v", productID, r)
		}
	}()
	return batch.Process(ctx, productID)
}

// markJobFailed marks a job as failed and bumps its retry count
func (w *Worker) markJobFailed(ctx context.Context, job *ItemJob, err error) ItemOutcome {
	now := w.now()
	job.Status = ItemFailed
	job.Message = err.Error()
	job.ProcessedAt = &now
	job.RetryCount++

	// The run context may already be cancelled; the failure still has to be recorded.
	if uerr := w.store.UpdateItemJob(context.WithoutCancel(ctx), job); uerr != nil {
		log.Warn().Err(uerr).Str("pipeline", w.pipeline.Name()).Int64("product_id", job.ProductID).Msg("failed to update job status")
	}

	if job.RetryCount < w.config.RetryAttempts {
		log.Debug().Str("pipeline", w.pipeline.Name()).Int64("product_id", job.ProductID).
			Msgf("will retry (attempt %d/%d)", job.RetryCount, w.config.RetryAttempts)
	}

	w.metrics.ItemProcessed(w.pipeline.Name(), string(ItemFailed))
	return ItemOutcome{
		ProductID: job.ProductID,
		Status:    ItemFailed,
		Error:     err.Error(),
		Err:       err,
	}
}

// finish finalizes the batch and writes the run's final counters and status.
// It returns the outcomes with rejected rows applied.
func (w *Worker) finish(ctx context.Context, run *PipelineRun, batch Batch, jobs []*ItemJob, outcomes []ItemOutcome) []ItemOutcome {
	finalizeErr := batch.Finalize(context.WithoutCancel(ctx))
	outcomes = w.applyRejected(ctx, batch, jobs, outcomes)

	run.CompletedItems, run.SkippedItems, run.FailedItems, run.TotalRows = tally(outcomes)
	run.Status = finalStatus(len(outcomes), run.FailedItems)

	if finalizeErr != nil {
		run.Status = StatusFailed
		run.ErrorMessage = fmt.Sprintf("finalize failed: %v", finalizeErr)
		log.Error().Err(finalizeErr).Str("pipeline", w.pipeline.Name()).Int64("run_id", run.ID).Msg("failed to finalize run")
	}

	now := w.now()
	run.CompletedAt = &now
	if err := w.store.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		log.Error().Err(err).Str("pipeline", w.pipeline.Name()).Int64("run_id", run.ID).Msg("failed to complete pipeline run")
	}

	w.metrics.RunFinished(w.pipeline.Name(), string(run.Status), now.Sub(run.StartedAt))
	log.Info().
		Str("pipeline", w.pipeline.Name()).
		Int64("run_id", run.ID).
		Str("status", string(run.Status)).
		Int("completed", run.CompletedItems).
		Int("skipped", run.SkippedItems).
		Int("failed", run.FailedItems).
		Int("rows", run.TotalRows).
		Msg("pipeline run finished")
	return outcomes
}

// applyRejected turns items whose rows the batch failed to save into failed
// items. jobs and outcomes are index-aligned.
func (w *Worker) applyRejected(ctx context.Context, batch Batch, jobs []*ItemJob, outcomes []ItemOutcome) []ItemOutcome {
	rejecter, ok := batch.(RowRejecter)
	if !ok {
		return outcomes
	}
	rejected := rejecter.Rejected()
	if len(rejected) == 0 {
		return outcomes
	}

	for i, o := range outcomes {
		err, ok := rejected[o.ProductID]
		if !ok || o.Status == ItemFailed {
			continue
		}
		outcomes[i] = w.markJobFailed(ctx, jobs[i], err)
	}
	return outcomes
}

// failRun records a setup failure
func (w *Worker) failRun(ctx context.Context, run *PipelineRun, err error) {
	now := w.now()
	run.Status = StatusFailed
	run.ErrorMessage = err.Error()
	run.CompletedAt = &now
	if uerr := w.store.UpdateRun(context.WithoutCancel(ctx), run); uerr != nil {
		log.Error().Err(uerr).Str("pipeline", w.pipeline.Name()).Msg("failed to update pipeline run")
	}
	w.metrics.RunFinished(w.pipeline.Name(), string(StatusFailed), now.Sub(run.StartedAt))
	log.Error().Err(err).Str("pipeline", w.pipeline.Name()).Int64("run_id", run.ID).Msg("pipeline run failed")
}

func (w *Worker) report(run *PipelineRun, outcomes []ItemOutcome) *RunReport {
	finished := w.now()
	if run.CompletedAt != nil {
		finished = *run.CompletedAt
	}
	if outcomes == nil {
		outcomes = []ItemOutcome{}
	}
	return &RunReport{
		RunID:      run.ID,
		Pipeline:   run.PipelineName,
		AsOf:       run.AsOf,
		Status:     run.Status,
		Total:      run.TotalItems,
		Completed:  run.CompletedItems,
		Skipped:    run.SkippedItems,
		Failed:     run.FailedItems,
		Rows:       run.TotalRows,
		StartedAt:  run.StartedAt,
		FinishedAt: finished,
		Error:      run.ErrorMessage,
		Outcomes:   outcomes,
	}
}

// RetryFailed re-processes failed items whose retry count is still below
// RetryAttempts, one prepared batch per original run.
func (w *Worker) RetryFailed(ctx context.Context) ([]*RunReport, error) {
	name := w.pipeline.Name()
	jobs, err := w.store.GetFailedItemJobs(ctx, name, w.config.RetryAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed jobs: %w", err)
	}

	if len(jobs) == 0 {
		log.Info().Str("pipeline", name).Msg("no failed items to retry")
		return nil, nil
	}

	log.Info().Str("pipeline", name).Int("items", len(jobs)).Msg("retrying failed items")

	// Group jobs by run ID, keeping first-seen order
	var runIDs []int64
	jobsByRun := make(map[int64][]*ItemJob)
	for _, job := range jobs {
		if _, ok := jobsByRun[job.RunID]; !ok {
			runIDs = append(runIDs, job.RunID)
		}
		jobsByRun[job.RunID] = append(jobsByRun[job.RunID], job)
	}

	var reports []*RunReport
	for _, runID := range runIDs {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		run, err := w.store.GetRun(ctx, runID)
		if err != nil {
			log.Error().Err(err).Str("pipeline", name).Int64("run_id", runID).Msg("failed to get run")
			continue
		}

		runJobs := jobsByRun[runID]
		ids := make([]int64, len(runJobs))
		for i, job := range runJobs {
			ids[i] = job.ProductID
		}

		batch, err := w.pipeline.Prepare(ctx, run.AsOf, ids)
		if err != nil {
			log.Error().Err(err).Str("pipeline", name).Int64("run_id", runID).Msg("failed to prepare retry")
			continue
		}

		outcomes := w.processItemsParallel(ctx, batch, runJobs)
		if err := batch.Finalize(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Str("pipeline", name).Int64("run_id", runID).Msg("failed to finalize retry")
		}
		outcomes = w.applyRejected(ctx, batch, runJobs, outcomes)

		if err := w.refreshRun(ctx, run); err != nil {
			log.Error().Err(err).Str("pipeline", name).Int64("run_id", runID).Msg("failed to refresh run counters")
		}

		rep := w.report(run, outcomes)
		rep.Total = len(outcomes)
		rep.Completed, rep.Skipped, rep.Failed, rep.Rows = tally(outcomes)
		reports = append(reports, rep)
	}

	return reports, nil
}

// refreshRun recomputes a run's counters from its item rows after a retry.
func (w *Worker) refreshRun(ctx context.Context, run *PipelineRun) error {
	jobs, err := w.store.GetItemJobsByRunID(ctx, run.ID)
	if err != nil {
		return err
	}

	run.CompletedItems, run.SkippedItems, run.FailedItems, run.TotalRows = 0, 0, 0, 0
	for _, job := range jobs {
		switch job.Status {
		case ItemCompleted:
			run.CompletedItems++
		case ItemSkipped:
			run.SkippedItems++
		case ItemFailed:
			run.FailedItems++
		}
		run.TotalRows += job.Rows
	}
	run.TotalItems = len(jobs)
	run.Status = finalStatus(len(jobs), run.FailedItems)
	run.ErrorMessage = ""
	now := w.now()
	run.CompletedAt = &now

	return w.store.UpdateRun(context.WithoutCancel(ctx), run)
}

func tally(outcomes []ItemOutcome) (completed, skipped, failed, rows int) {
	for _, o := range outcomes {
		switch o.Status {
		case ItemCompleted:
			completed++
		case ItemSkipped:
			skipped++
		case ItemFailed:
			failed++
		}
		rows += o.Rows
	}
	return completed, skipped, failed, rows
}
