package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type memStore struct {
	mu     sync.Mutex
	nextID int64
	runs   map[int64]*PipelineRun
	items  map[int64]*ItemJob
}

func newMemStore() *memStore {
	return &memStore{runs: map[int64]*PipelineRun{}, items: map[int64]*ItemJob{}}
}

func (m *memStore) CreateRun(ctx context.Context, run *PipelineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	run.ID = m.nextID
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *memStore) UpdateRun(ctx context.Context, run *PipelineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *memStore) GetRun(ctx context.Context, id int64) (*PipelineRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, errors.New("run not found")
	}
	cp := *run
	return &cp, nil
}

func (m *memStore) ListRuns(ctx context.Context, pipelineName string, limit int) ([]*PipelineRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*PipelineRun
	for _, r := range m.runs {
		if pipelineName == "" || r.PipelineName == pipelineName {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CreateItemJob(ctx context.Context, job *ItemJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	job.ID = m.nextID
	cp := *job
	m.items[job.ID] = &cp
	return nil
}

func (m *memStore) UpdateItemJob(ctx context.Context, job *ItemJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.items[job.ID] = &cp
	return nil
}

func (m *memStore) GetItemJobsByRunID(ctx context.Context, runID int64) ([]*ItemJob, error) {
	return m.filterItems(func(j *ItemJob) bool { return j.RunID == runID }), nil
}

func (m *memStore) GetFailedItemJobs(ctx context.Context, pipelineName string, maxRetries int) ([]*ItemJob, error) {
	m.mu.Lock()
	names := make(map[int64]string, len(m.runs))
	for id, r := range m.runs {
		names[id] = r.PipelineName
	}
	m.mu.Unlock()

	return m.filterItems(func(j *ItemJob) bool {
		return names[j.RunID] == pipelineName && j.Status == ItemFailed && j.RetryCount < maxRetries
	}), nil
}

func (m *memStore) filterItems(keep func(*ItemJob) bool) []*ItemJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ItemJob
	for _, j := range m.items {
		if keep(j) {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// fakePipeline processes items with a caller-supplied function.
type fakePipeline struct {
	name        string
	items       []int64
	prepareErr  error
	finalizeErr error
	rejected    map[int64]error
	process     func(ctx context.Context, id int64) (ItemResult, error)

	mu        sync.Mutex
	prepared  [][]int64
	finalized int
}

func (f *fakePipeline) Name() string { return f.name }

func (f *fakePipeline) Prepare(ctx context.Context, asOf time.Time, productIDs []int64) (Batch, error) {
	if f.prepareErr != nil {
		return nil, f.prepareErr
	}
	items := productIDs
	if len(items) == 0 {
		items = f.items
	}
	f.mu.Lock()
	f.prepared = append(f.prepared, items)
	f.mu.Unlock()
	return &fakeBatch{p: f, items: items}, nil
}

type fakeBatch struct {
	p     *fakePipeline
	items []int64
}

func (b *fakeBatch) Items() []int64 { return b.items }

func (b *fakeBatch) Process(ctx context.Context, id int64) (ItemResult, error) {
	if b.p.process == nil {
		return ItemResult{Rows: 1}, nil
	}
	return b.p.process(ctx, id)
}

func (b *fakeBatch) Rejected() map[int64]error { return b.p.rejected }

func (b *fakeBatch) Finalize(ctx context.Context) error {
	b.p.mu.Lock()
	b.p.finalized++
	b.p.mu.Unlock()
	return b.p.finalizeErr
}
