package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/soundprediction/recall/pkg/types"
)

// searchRecordRow is the Parquet layout of a types.SearchRecord.
type searchRecordRow struct {
	Timestamp   time.Time `parquet:"timestamp"`
	Query       string    `parquet:"query"`
	Intent      string    `parquet:"intent"`
	ResultCount int64     `parquet:"result_count"`
	LatencyMs   float64   `parquet:"latency_ms"`
	CacheHit    bool      `parquet:"cache_hit"`
}

// WriteSearchHistory writes records to a Parquet file at path, creating its
// directory when needed.
func WriteSearchHistory(path string, records []types.SearchRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	rows := make([]searchRecordRow, len(records))
	for i, r := range records {
		rows[i] = searchRecordRow{
			Timestamp:   r.Timestamp.UTC(),
			Query:       r.Query,
			Intent:      string(r.Intent),
			ResultCount: int64(r.ResultCount),
			LatencyMs:   r.LatencyMs,
			CacheHit:    r.CacheHit,
		}
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write search history: %w", err)
	}
	return nil
}

// ReadSearchHistory reads a file written by WriteSearchHistory.
func ReadSearchHistory(path string) ([]types.SearchRecord, error) {
	rows, err := parquet.ReadFile[searchRecordRow](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read search history: %w", err)
	}

	records := make([]types.SearchRecord, len(rows))
	for i, r := range rows {
		records[i] = types.SearchRecord{
			Timestamp:   r.Timestamp.UTC(),
			Query:       r.Query,
			Intent:      types.Intent(r.Intent),
			ResultCount: int(r.ResultCount),
			LatencyMs:   r.LatencyMs,
			CacheHit:    r.CacheHit,
		}
	}
	return records, nil
}

// HistoryFileName returns a timestamped file name for a history export.
func HistoryFileName(t time.Time) string {
	return fmt.Sprintf("search_history_%s.parquet", t.UTC().Format("20060102_150405"))
}
