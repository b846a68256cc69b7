package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var asOf = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func testConfig() PipelineConfig {
	cfg := DefaultPipelineConfig("test")
	cfg.WorkerCount = 3
	return cfg
}

func TestWorkerRunMixedOutcomes(t *testing.T) {
	store := newMemStore()
	p := &fakePipeline{
		name:  "test",
		items: []int64{1, 2, 3, 4, 5},
		process: func(ctx context.Context, id int64) (ItemResult, error) {
			switch id {
			case 2:
				return ItemResult{Skipped: true, Reason: "insufficient history"}, nil
			case 4:
				return ItemResult{}, errors.New("boom")
			case 5:
				panic("unexpected nil")
			}
			return ItemResult{Rows: 3}, nil
		},
	}

	report, err := NewWorker(p, testConfig(), store, nil).Run(context.Background(), asOf, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Status != StatusCompletedWithErrors {
		t.Errorf("Status = %s, want %s", report.Status, StatusCompletedWithErrors)
	}
	if report.Total != 5 || report.Completed != 2 || report.Skipped != 1 || report.Failed != 2 || report.Rows != 6 {
		t.Errorf("report counts = %+v", report)
	}

	want := []ItemStatus{ItemCompleted, ItemSkipped, ItemCompleted, ItemFailed, ItemFailed}
	for i, o := range report.Outcomes {
		if o.ProductID != p.items[i] || o.Status != want[i] {
			t.Errorf("outcome %d = product %d %s, want product %d %s", i, o.ProductID, o.Status, p.items[i], want[i])
		}
	}
	if report.Outcomes[1].Reason != "insufficient history" {
		t.Errorf("skip reason = %q", report.Outcomes[1].Reason)
	}
	if !strings.Contains(report.Outcomes[4].Error, "panic") {
		t.Errorf("panic outcome error = %q", report.Outcomes[4].Error)
	}
	if p.finalized != 1 {
		t.Errorf("Finalize called %d times, want 1", p.finalized)
	}

	run, _ := store.GetRun(context.Background(), report.RunID)
	if run.Status != StatusCompletedWithErrors || run.FailedItems != 2 || run.CompletedAt == nil {
		t.Errorf("stored run = %+v", run)
	}

	jobs, _ := store.GetItemJobsByRunID(context.Background(), report.RunID)
	for _, j := range jobs {
		if j.Status == ItemFailed && j.RetryCount != 1 {
			t.Errorf("failed job for product %d has retry count %d, want 1", j.ProductID, j.RetryCount)
		}
		if j.Status == ItemQueued || j.Status == ItemProcessing {
			t.Errorf("job for product %d left in %s", j.ProductID, j.Status)
		}
	}
}

func TestWorkerRunStatus(t *testing.T) {
	fail := func(ctx context.Context, id int64) (ItemResult, error) { return ItemResult{}, errors.New("nope") }
	skip := func(ctx context.Context, id int64) (ItemResult, error) { return ItemResult{Skipped: true}, nil }

	tests := []struct {
		name    string
		items   []int64
		process func(context.Context, int64) (ItemResult, error)
		want    RunStatus
	}{
		{"all completed", []int64{1, 2}, nil, StatusCompleted},
		{"all skipped", []int64{1, 2}, skip, StatusCompleted},
		{"all failed", []int64{1, 2}, fail, StatusFailed},
		{"no items", nil, nil, StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePipeline{name: "test", items: tt.items, process: tt.process}
			report, err := NewWorker(p, testConfig(), newMemStore(), nil).Run(context.Background(), asOf, nil)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if report.Status != tt.want {
				t.Errorf("Status = %s, want %s", report.Status, tt.want)
			}
		})
	}
}

func TestWorkerPrepareFailure(t *testing.T) {
	store := newMemStore()
	boom := errors.New("db down")
	p := &fakePipeline{name: "test", prepareErr: boom}

	report, err := NewWorker(p, testConfig(), store, nil).Run(context.Background(), asOf, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if report == nil || report.Status != StatusFailed || report.Error == "" {
		t.Fatalf("report = %+v", report)
	}

	run, _ := store.GetRun(context.Background(), report.RunID)
	if run.Status != StatusFailed {
		t.Errorf("stored run status = %s, want failed", run.Status)
	}
}

func TestWorkerFinalizeFailure(t *testing.T) {
	p := &fakePipeline{name: "test", items: []int64{1}, finalizeErr: errors.New("write failed")}

	report, err := NewWorker(p, testConfig(), newMemStore(), nil).Run(context.Background(), asOf, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != StatusFailed || !strings.Contains(report.Error, "finalize") {
		t.Errorf("report = %s %q, want failed with finalize error", report.Status, report.Error)
	}
}

func TestWorkerFailsItemsWithRejectedRows(t *testing.T) {
	store := newMemStore()
	p := &fakePipeline{
		name:     "test",
		items:    []int64{1, 2, 3},
		rejected: map[int64]error{2: errors.New("numeric field overflow")},
	}

	report, err := NewWorker(p, testConfig(), store, nil).Run(context.Background(), asOf, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != StatusCompletedWithErrors || report.Completed != 2 || report.Failed != 1 {
		t.Fatalf("report = %s completed=%d failed=%d", report.Status, report.Completed, report.Failed)
	}

	o := report.Outcomes[1]
	if o.ProductID != 2 || o.Status != ItemFailed || !strings.Contains(o.Error, "overflow") {
		t.Errorf("outcome for product 2 = %+v", o)
	}

	jobs, _ := store.GetFailedItemJobs(context.Background(), "test", 3)
	if len(jobs) != 1 || jobs[0].ProductID != 2 || jobs[0].RetryCount != 1 {
		t.Errorf("failed jobs = %+v, want product 2 queued for retry", jobs)
	}

	run, _ := store.GetRun(context.Background(), report.RunID)
	if run.FailedItems != 1 || run.CompletedItems != 2 {
		t.Errorf("stored run counters = %+v", run)
	}
}

func TestWorkerCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called atomic.Int32
	p := &fakePipeline{
		name:  "test",
		items: []int64{1, 2, 3, 4},
		process: func(ctx context.Context, id int64) (ItemResult, error) {
			called.Add(1)
			return ItemResult{}, nil
		},
	}

	report, err := NewWorker(p, testConfig(), newMemStore(), nil).Run(ctx, asOf, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if called.Load() != 0 {
		t.Errorf("Process called %d times after cancellation", called.Load())
	}
	for _, o := range report.Outcomes {
		if o.Status != ItemFailed || !errors.Is(o.Err, context.Canceled) {
			t.Errorf("product %d outcome = %s (%v), want failed with context.Canceled", o.ProductID, o.Status, o.Err)
		}
	}
	if report.Status != StatusFailed {
		t.Errorf("Status = %s, want failed", report.Status)
	}
}

func TestWorkerCancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &fakePipeline{
		name:  "test",
		items: []int64{1, 2, 3},
		process: func(ctx context.Context, id int64) (ItemResult, error) {
			cancel()
			return ItemResult{Rows: 1}, nil
		},
	}
	cfg := testConfig()
	cfg.WorkerCount = 1

	report, err := NewWorker(p, cfg, newMemStore(), nil).Run(ctx, asOf, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Outcomes[0].Status != ItemCompleted {
		t.Errorf("first item = %s, want completed", report.Outcomes[0].Status)
	}
	for _, o := range report.Outcomes[1:] {
		if o.Status != ItemFailed || !errors.Is(o.Err, context.Canceled) {
			t.Errorf("product %d outcome = %s, want failed with context.Canceled", o.ProductID, o.Status)
		}
	}
	if report.Status != StatusCompletedWithErrors {
		t.Errorf("Status = %s, want %s", report.Status, StatusCompletedWithErrors)
	}
}

func TestWorkerRetryFailed(t *testing.T) {
	store := newMemStore()
	var attempts atomic.Int32
	p := &fakePipeline{
		name:  "test",
		items: []int64{1, 2, 3},
		process: func(ctx context.Context, id int64) (ItemResult, error) {
			if id == 3 && attempts.Add(1) == 1 {
				return ItemResult{}, errors.New("transient")
			}
			return ItemResult{Rows: 2}, nil
		},
	}
	w := NewWorker(p, testConfig(), store, nil)

	first, err := w.Run(context.Background(), asOf, nil)
	if err != nil || first.Status != StatusCompletedWithErrors {
		t.Fatalf("first run = %v, %v", first, err)
	}

	reports, err := w.RetryFailed(context.Background())
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("got %d retry reports, want 1", len(reports))
	}
	if reports[0].Total != 1 || reports[0].Completed != 1 || reports[0].RunID != first.RunID {
		t.Errorf("retry report = %+v", reports[0])
	}

	if got := p.prepared[len(p.prepared)-1]; len(got) != 1 || got[0] != 3 {
		t.Errorf("retry prepared items %v, want [3]", got)
	}

	run, _ := store.GetRun(context.Background(), first.RunID)
	if run.Status != StatusCompleted || run.FailedItems != 0 || run.CompletedItems != 3 || run.TotalRows != 6 {
		t.Errorf("run after retry = %+v", run)
	}

	again, err := w.RetryFailed(context.Background())
	if err != nil || len(again) != 0 {
		t.Errorf("second retry = %v, %v; want nothing to do", again, err)
	}
}

func TestWorkerRetryRespectsAttempts(t *testing.T) {
	p := &fakePipeline{
		name:  "test",
		items: []int64{1},
		process: func(ctx context.Context, id int64) (ItemResult, error) {
			return ItemResult{}, errors.New("permanent")
		},
	}
	cfg := testConfig()
	cfg.RetryAttempts = 2
	w := NewWorker(p, cfg, newMemStore(), nil)

	if _, err := w.Run(context.Background(), asOf, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reports, _ := w.RetryFailed(context.Background()); len(reports) != 1 {
		t.Fatalf("first retry reports = %d, want 1", len(reports))
	}
	if reports, _ := w.RetryFailed(context.Background()); len(reports) != 0 {
		t.Errorf("retry past the attempt limit produced %d reports", len(reports))
	}
}
