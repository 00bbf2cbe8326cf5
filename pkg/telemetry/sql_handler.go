package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/soundprediction/recall/pkg/store"
)

// SQLHandler is a slog.Handler that writes error logs to the
// telemetry_logs table of the entity database.
type SQLHandler struct {
	next      slog.Handler
	db        *sql.DB
	dialect   store.Dialect
	tableName string
	attrs     []slog.Attr
}

// NewSQLHandler creates a new SQLHandler using an existing DB connection
func NewSQLHandler(ctx context.Context, next slog.Handler, db *sql.DB, dialect store.Dialect) (*SQLHandler, error) {
	h := &SQLHandler{
		next:      next,
		db:        db,
		dialect:   dialect,
		tableName: "telemetry_logs",
	}

	if err := h.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure telemetry table: %w", err)
	}
	return h, nil
}

func (h *SQLHandler) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(36) PRIMARY KEY,
			timestamp BIGINT NOT NULL,
			level VARCHAR(10),
			message TEXT,
			stage VARCHAR(64),
			entity_id VARCHAR(255),
			user_id VARCHAR(255),
			session_id VARCHAR(255),
			request_source VARCHAR(255),
			source_file VARCHAR(255),
			line_number INT,
			attributes TEXT
		)
	`, h.tableName)

	_, err := h.db.ExecContext(ctx, query)
	return err
}

// Enabled implements slog.Handler
func (h *SQLHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *SQLHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level < slog.LevelError {
		return nil
	}

	rec := newLogRecord(ctx, r, h.attrs)
	query := h.dialect.Rebind(fmt.Sprintf(`
		INSERT INTO %s (id, timestamp, level, message, stage, entity_id, user_id, session_id, request_source, source_file, line_number, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.tableName))

	// the record outlives a canceled request
	_, err := h.db.ExecContext(context.WithoutCancel(ctx), query,
		rec.ID,
		rec.Timestamp.UnixNano(),
		rec.Level,
		rec.Message,
		rec.Stage,
		rec.EntityID,
		rec.UserID,
		rec.SessionID,
		rec.RequestSource,
		rec.SourceFile,
		rec.LineNumber,
		rec.Attributes,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write log to SQL: %v\n", err)
	}
	return nil
}

// WithAttrs implements slog.Handler
func (h *SQLHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SQLHandler{
		next:      h.next.WithAttrs(attrs),
		db:        h.db,
		dialect:   h.dialect,
		tableName: h.tableName,
		attrs:     append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler
func (h *SQLHandler) WithGroup(name string) slog.Handler {
	return &SQLHandler{
		next:      h.next.WithGroup(name),
		db:        h.db,
		dialect:   h.dialect,
		tableName: h.tableName,
		attrs:     h.attrs,
	}
}
