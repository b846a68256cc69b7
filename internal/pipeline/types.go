package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/velorize/backend-go/internal/config"
)

// Pipeline is a batch job that runs once per product.
type Pipeline interface {
	// Name returns the unique identifier for this pipeline
	Name() string

	// Prepare loads the inputs shared by every item of a run. When productIDs
	// is empty the pipeline chooses its own item set.
	Prepare(ctx context.Context, asOf time.Time, productIDs []int64) (Batch, error)
}

// Batch is one prepared run of a Pipeline. Process is called concurrently.
type Batch interface {
	Items() []int64
	Process(ctx context.Context, productID int64) (ItemResult, error)
	// Finalize is called once after every item has been processed.
	Finalize(ctx context.Context) error
}

// RowRejecter is implemented by batches that write an item's rows after
// Process has returned. After Finalize, Rejected names the items whose rows
// were not saved; the worker reports those items as failed.
type RowRejecter interface {
	Rejected() map[int64]error
}

// ItemResult is what a successful Process call reports. A skipped item is
// not an error; Reason says why it was skipped.
type ItemResult struct {
	Skipped bool
	Reason  string
	Rows    int
}

// PipelineConfig holds configuration for a pipeline instance
type PipelineConfig struct {
	Name          string
	BatchSize     int           // Rows buffered before a sink flush
	FlushInterval time.Duration // Max time between sink flushes
	WorkerCount   int           // Number of concurrent workers
	RetryAttempts int           // Failed items are retried while below this count
}

// DefaultPipelineConfig returns sensible defaults
func DefaultPipelineConfig(name string) PipelineConfig {
	return PipelineConfig{
		Name:          name,
		BatchSize:     50,
		FlushInterval: time.Minute,
		WorkerCount:   4,
		RetryAttempts: 3,
	}
}

// ConfigFrom applies the environment's pipeline settings on top of the defaults.
func ConfigFrom(name string, cfg config.PipelineConfig) PipelineConfig {
	pc := DefaultPipelineConfig(name)
	if cfg.BatchSize > 0 {
		pc.BatchSize = cfg.BatchSize
	}
	if cfg.Workers > 0 {
		pc.WorkerCount = cfg.Workers
	}
	if cfg.RetryAttempts >= 0 {
		pc.RetryAttempts = cfg.RetryAttempts
	}
	return pc
}

// RunStatus represents the current state of a pipeline run
type RunStatus string

const (
	StatusPending             RunStatus = "pending"
	StatusProcessing          RunStatus = "processing"
	StatusCompleted           RunStatus = "completed"
	StatusCompletedWithErrors RunStatus = "completed_with_errors"
	StatusFailed              RunStatus = "failed"
)

// ItemStatus represents the state of a single item
type ItemStatus string

const (
	ItemQueued     ItemStatus = "queued"
	ItemProcessing ItemStatus = "processing"
	ItemCompleted  ItemStatus = "completed"
	ItemSkipped    ItemStatus = "skipped"
	ItemFailed     ItemStatus = "failed"
)

// PipelineRun tracks a single execution of a pipeline
type PipelineRun struct {
	ID             int64
	PipelineName   string
	AsOf           time.Time
	Status         RunStatus
	TotalItems     int
	CompletedItems int
	SkippedItems   int
	FailedItems    int
	TotalRows      int
	StartedAt      time.Time
	CompletedAt    *time.Time
	ErrorMessage   string
}

// ItemJob tracks the processing of a single product within a run
type ItemJob struct {
	ID          int64
	RunID       int64
	ProductID   int64
	Status      ItemStatus
	Message     string
	Rows        int
	ProcessedAt *time.Time
	RetryCount  int
}

// ItemOutcome is the tagged result of one item. Err is set only for failures.
type ItemOutcome struct {
	ProductID int64      `json:"product_id"`
	Status    ItemStatus `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	Rows      int        `json:"rows"`
	Error     string     `json:"error,omitempty"`
	Err       error      `json:"-"`
}

// RunReport summarises a finished run for callers and the report archive.
type RunReport struct {
	RunID      int64         `json:"run_id"`
	Pipeline   string        `json:"pipeline"`
	AsOf       time.Time     `json:"as_of"`
	Status     RunStatus     `json:"status"`
	Total      int           `json:"total"`
	Completed  int           `json:"completed"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Rows       int           `json:"rows"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Error      string        `json:"error,omitempty"`
	ArchiveKey string        `json:"archive_key,omitempty"`
	Outcomes   []ItemOutcome `json:"outcomes"`
}

// RunStore persists run and item tracking rows.
type RunStore interface {
	CreateRun(ctx context.Context, run *PipelineRun) error
	UpdateRun(ctx context.Context, run *PipelineRun) error
	GetRun(ctx context.Context, id int64) (*PipelineRun, error)
	ListRuns(ctx context.Context, pipelineName string, limit int) ([]*PipelineRun, error)
	CreateItemJob(ctx context.Context, job *ItemJob) error
	UpdateItemJob(ctx context.Context, job *ItemJob) error
	GetItemJobsByRunID(ctx context.Context, runID int64) ([]*ItemJob, error)
	GetFailedItemJobs(ctx context.Context, pipelineName string, maxRetries int) ([]*ItemJob, error)
}

// finalStatus derives a run status from its item counts.
func finalStatus(total, failed int) RunStatus {
	switch {
	case failed == 0:
		return StatusCompleted
	case failed == total:
		return StatusFailed
	default:
		return StatusCompletedWithErrors
	}
}
