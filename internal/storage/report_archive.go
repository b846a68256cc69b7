package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
)

const reportPrefix = "runs"

// ReportArchive stores batch run reports as JSON documents laid out as
// runs/<pipeline>/<yyyy-mm-dd>/<run id>.json.
type ReportArchive struct {
	store ObjectStorage
}

func NewReportArchive(store ObjectStorage) *ReportArchive {
	return &ReportArchive{store: store}
}

// ReportKey returns the object key for a run report.
func ReportKey(pipeline string, runDate time.Time, runID int64) string {
	return path.Join(reportPrefix, pipeline, runDate.UTC().Format("2006-01-02"), fmt.Sprintf("%d.json", runID))
}

// Save marshals report and uploads it, returning the key written.
func (a *ReportArchive) Save(ctx context.Context, pipeline string, runDate time.Time, runID int64, report interface{}) (string, error) {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode run report: %w", err)
	}

	key := ReportKey(pipeline, runDate, runID)
	if err := a.store.UploadObject(ctx, key, payload); err != nil {
		return "", err
	}
	return key, nil
}

// List returns archived report keys for a pipeline, newest date first.
// An empty pipeline lists every pipeline.
func (a *ReportArchive) List(ctx context.Context, pipeline string) ([]string, error) {
	prefix := reportPrefix + "/"
	if pipeline != "" {
		prefix += strings.Trim(pipeline, "/") + "/"
	}

	objects, err := a.store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, ".json") {
			keys = append(keys, obj.Key)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

// Load fetches an archived report into dest.
func (a *ReportArchive) Load(ctx context.Context, key string, dest interface{}) error {
	payload, err := a.store.GetObject(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("decode run report %s: %w", key, err)
	}
	return nil
}
