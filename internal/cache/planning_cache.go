package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/velorize/backend-go/internal/config"
	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/redis/go-redis/v9"
)

const (
	planningKeyPrefix     = "planning:"
	matrixKeyPrefix       = planningKeyPrefix + "matrix"
	planningScanBatchSize = 100
)

// PlanningCache holds ABC-XYZ matrices, which are expensive to rebuild from
// sales history. Entries are dropped wholesale whenever a classification run
// writes a new snapshot. Recommendations depend on live stock and are never
// cached.
type PlanningCache interface {
	GetMatrix(ctx context.Context, filter domain.AnalysisFilter) ([]planning.MatrixItem, bool, error)
	SetMatrix(ctx context.Context, filter domain.AnalysisFilter, items []planning.MatrixItem) error
	InvalidateAll(ctx context.Context) error
}

type redisPlanningCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopPlanningCache struct{}

func NewPlanningCache(cfg config.CacheConfig) (PlanningCache, error) {
	if !cfg.Enabled {
		return &noopPlanningCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisPlanningCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopPlanningCache() PlanningCache {
	return &noopPlanningCache{}
}

func (c *redisPlanningCache) GetMatrix(ctx context.Context, filter domain.AnalysisFilter) ([]planning.MatrixItem, bool, error) {
	var items []planning.MatrixItem
	ok, err := c.get(ctx, buildMatrixKey(filter), &items)
	return items, ok, err
}

func (c *redisPlanningCache) SetMatrix(ctx context.Context, filter domain.AnalysisFilter, items []planning.MatrixItem) error {
	return c.set(ctx, buildMatrixKey(filter), items)
}

func (c *redisPlanningCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, planningKeyPrefix, planningScanBatchSize)
}

func (c *redisPlanningCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode planning cache entry %s: %w", key, err)
	}
	return true, nil
}

func (c *redisPlanningCache) set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode planning cache entry %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopPlanningCache) GetMatrix(ctx context.Context, filter domain.AnalysisFilter) ([]planning.MatrixItem, bool, error) {
	return nil, false, nil
}

func (n *noopPlanningCache) SetMatrix(ctx context.Context, filter domain.AnalysisFilter, items []planning.MatrixItem) error {
	return nil
}

func (n *noopPlanningCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildMatrixKey(filter domain.AnalysisFilter) string {
	var parts []string
	if filter.AnalysisDays > 0 {
		parts = append(parts, "analysis_days="+strconv.Itoa(filter.AnalysisDays))
	}
	if len(filter.ProductIDs) > 0 {
		parts = append(parts, "product_ids="+joinInt64s(filter.ProductIDs))
	}
	if cell := strings.ToUpper(strings.TrimSpace(filter.Cell)); cell != "" {
		parts = append(parts, "cell="+cell)
	}
	return fmt.Sprintf("%s:%s", matrixKeyPrefix, hashParts(parts))
}
