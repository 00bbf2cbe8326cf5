package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/soundprediction/recall/pkg/types"
)

// DefaultBatchSize is the number of error records buffered before a flush.
const DefaultBatchSize = 100

// LogRecord represents a single log entry for Parquet storage
type LogRecord struct {
	ID            string    `parquet:"id"`
	Timestamp     time.Time `parquet:"timestamp"`
	Level         string    `parquet:"level"`
	Message       string    `parquet:"message"`
	Stage         string    `parquet:"stage"`
	EntityID      string    `parquet:"entity_id"`
	UserID        string    `parquet:"user_id"`
	SessionID     string    `parquet:"session_id"`
	RequestSource string    `parquet:"request_source"`
	SourceFile    string    `parquet:"source_file"`
	LineNumber    int       `parquet:"line_number"`
	Attributes    string    `parquet:"attributes"` // JSON string
}

// sink is the buffer shared by a handler and the handlers derived from it.
type sink struct {
	mu        sync.Mutex
	outputDir string
	batchSize int
	buffer    []LogRecord
}

// ParquetHandler is a slog.Handler that forwards every record to the next
// handler and writes error records to Parquet files in batches. Write
// failures are reported on stderr and never returned to the caller.
type ParquetHandler struct {
	next  slog.Handler
	sink  *sink
	attrs []slog.Attr
}

// NewParquetHandler creates a new ParquetHandler writing to outputDir.
func NewParquetHandler(next slog.Handler, outputDir string) (*ParquetHandler, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	return &ParquetHandler{
		next: next,
		sink: &sink{
			outputDir: outputDir,
			batchSize: DefaultBatchSize,
			buffer:    make([]LogRecord, 0, DefaultBatchSize),
		},
	}, nil
}

// Enabled implements slog.Handler
func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level < slog.LevelError {
		return nil
	}

	record := newLogRecord(ctx, r, h.attrs)

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	h.sink.buffer = append(h.sink.buffer, record)
	if len(h.sink.buffer) >= h.sink.batchSize {
		h.sink.flush()
	}
	return nil
}

// Flush writes buffered records to a new Parquet file.
func (h *ParquetHandler) Flush() error {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return h.sink.flush()
}

// Buffered returns the number of records waiting for a flush.
func (h *ParquetHandler) Buffered() int {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return len(h.sink.buffer)
}

// flush writes the buffer to a new file. Caller must hold the lock.
func (s *sink) flush() error {
	if len(s.buffer) == 0 {
		return nil
	}

	now := time.Now()
	filename := fmt.Sprintf("recall_errors_%s_%d.parquet", now.Format("20060102_150405"), now.UnixNano())
	path := filepath.Join(s.outputDir, filename)

	if err := parquet.WriteFile(path, s.buffer); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write telemetry parquet file: %v\n", err)
		return err
	}
	s.buffer = s.buffer[:0]
	return nil
}

// WithAttrs implements slog.Handler
func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ParquetHandler{
		next:  h.next.WithAttrs(attrs),
		sink:  h.sink,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler
func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	return &ParquetHandler{
		next:  h.next.WithGroup(name),
		sink:  h.sink,
		attrs: h.attrs,
	}
}

// newLogRecord extracts the request context, the attributes and the call
// site of r.
func newLogRecord(ctx context.Context, r slog.Record, inherited []slog.Attr) LogRecord {
	var userID, sessionID, requestSource string
	if v, ok := ctx.Value(types.ContextKeyUserID).(string); ok {
		userID = v
	}
	if v, ok := ctx.Value(types.ContextKeySessionID).(string); ok {
		sessionID = v
	}
	if v, ok := ctx.Value(types.ContextKeyRequestSource).(string); ok {
		requestSource = v
	}

	attrs := make(map[string]interface{})
	for _, a := range inherited {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	for k, v := range attrs {
		if err, ok := v.(error); ok {
			attrs[k] = err.Error()
		}
	}
	attrsJSON, _ := json.Marshal(attrs)

	var sourceFile string
	var line int
	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		sourceFile, line = f.File, f.Line
	}

	stage, _ := attrs["stage"].(string)
	entityID, _ := attrs["entity_id"].(string)

	return LogRecord{
		ID:            uuid.New().String(),
		Timestamp:     r.Time.UTC(),
		Level:         r.Level.String(),
		Message:       r.Message,
		Stage:         stage,
		EntityID:      entityID,
		UserID:        userID,
		SessionID:     sessionID,
		RequestSource: requestSource,
		SourceFile:    sourceFile,
		LineNumber:    line,
		Attributes:    string(attrsJSON),
	}
}
