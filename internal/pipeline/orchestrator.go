package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/velorize/backend-go/internal/metrics"
)

// ReportArchiver stores finished run reports. storage.ReportArchive satisfies it.
type ReportArchiver interface {
	Save(ctx context.Context, pipeline string, runDate time.Time, runID int64, report interface{}) (string, error)
}

// Orchestrator runs pipelines one after another against a shared run store.
type Orchestrator struct {
	store   RunStore
	cfg     PipelineConfig
	metrics *metrics.Recorder
	archive ReportArchiver
	makeW   func(p Pipeline, cfg PipelineConfig, store RunStore, rec *metrics.Recorder) *Worker
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(store RunStore, cfg PipelineConfig, rec *metrics.Recorder) *Orchestrator {
	return &Orchestrator{
		store:   store,
		cfg:     cfg,
		metrics: rec,
		makeW:   NewWorker,
	}
}

// WithArchive makes the orchestrator save every report to object storage.
func (o *Orchestrator) WithArchive(a ReportArchiver) *Orchestrator {
	o.archive = a
	return o
}

// Run executes the pipelines in order over their default item sets.
func (o *Orchestrator) Run(ctx context.Context, asOf time.Time, pipelines ...Pipeline) ([]*RunReport, error) {
	return o.RunItems(ctx, asOf, nil, pipelines...)
}

// RunItems executes the pipelines in order for the given products. A pipeline
// that fails entirely is reported and the next one still runs; only context
// cancellation stops the sequence.
func (o *Orchestrator) RunItems(ctx context.Context, asOf time.Time, productIDs []int64, pipelines ...Pipeline) ([]*RunReport, error) {
	reports := make([]*RunReport, 0, len(pipelines))

	for _, p := range pipelines {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		cfg := o.cfg
		cfg.Name = p.Name()
		worker := o.makeW(p, cfg, o.store, o.metrics)

		report, err := worker.Run(ctx, asOf, productIDs)
		if err != nil {
			log.Error().Err(err).Str("pipeline", p.Name()).Msg("pipeline failed")
			if report == nil {
				now := time.Now()
				report = &RunReport{
					Pipeline:   p.Name(),
					AsOf:       asOf,
					Status:     StatusFailed,
					StartedAt:  now,
					FinishedAt: now,
					Error:      err.Error(),
					Outcomes:   []ItemOutcome{},
				}
			}
		}

		o.archiveReport(ctx, report)
		reports = append(reports, report)
	}

	return reports, nil
}

// RetryFailed retries failed items for each pipeline in order.
func (o *Orchestrator) RetryFailed(ctx context.Context, pipelines ...Pipeline) ([]*RunReport, error) {
	var reports []*RunReport
	for _, p := range pipelines {
		cfg := o.cfg
		cfg.Name = p.Name()
		worker := o.makeW(p, cfg, o.store, o.metrics)

		retried, err := worker.RetryFailed(ctx)
		if err != nil {
			return reports, err
		}
		for _, r := range retried {
			o.archiveReport(ctx, r)
		}
		reports = append(reports, retried...)
	}
	return reports, nil
}

// Runs lists recent runs, optionally for one pipeline.
func (o *Orchestrator) Runs(ctx context.Context, pipelineName string, limit int) ([]*PipelineRun, error) {
	return o.store.ListRuns(ctx, pipelineName, limit)
}

func (o *Orchestrator) archiveReport(ctx context.Context, report *RunReport) {
	if o.archive == nil || report == nil || report.RunID == 0 {
		return
	}
	key, err := o.archive.Save(ctx, report.Pipeline, report.AsOf, report.RunID, report)
	if err != nil {
		log.Warn().Err(err).Str("pipeline", report.Pipeline).Int64("run_id", report.RunID).Msg("failed to archive run report")
		return
	}
	report.ArchiveKey = key
}
