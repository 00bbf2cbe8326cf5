package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/soundprediction/recall/pkg/store"
	"github.com/soundprediction/recall/pkg/types"
	"github.com/soundprediction/recall/pkg/utils"
)

const relationshipColumns = "source_id, target_id, relationship_type, weight, metadata, created_by, created_at, updated_at"

// idBatchSize keeps IN lists below SQLite's variable limit. Neighbors binds
// each id twice.
var idBatchSize = 400

// SQLGraph implements Graph on the relational database of a SQLStore.
type SQLGraph struct {
	db      *sql.DB
	dialect store.Dialect
	logger  *slog.Logger
	now     func() time.Time
}

// NewSQLGraph creates a graph over db. Call Initialize before use. The
// graph does not own db; Close leaves it open.
func NewSQLGraph(db *sql.DB, dialect store.Dialect, logger *slog.Logger) *SQLGraph {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLGraph{
		db:      db,
		dialect: dialect,
		logger:  logger,
		now:     time.Now,
	}
}

// Initialize creates the relationships table and its indices.
func (g *SQLGraph) Initialize(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS relationships (
			source_id VARCHAR(255) NOT NULL,
			target_id VARCHAR(255) NOT NULL,
			relationship_type VARCHAR(128) NOT NULL,
			weight DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			metadata TEXT,
			created_by VARCHAR(255),
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (source_id, target_id, relationship_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_type ON relationships(relationship_type)`,
	}
	for _, stmt := range stmts {
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create relationships schema: %w", err)
		}
	}
	return nil
}

// AddEdge implements Graph.
func (g *SQLGraph) AddEdge(ctx context.Context, rel *types.Relationship) (bool, error) {
	n, err := g.AddEdges(ctx, []*types.Relationship{rel})
	return n == 1, err
}

// AddEdges implements Graph.
func (g *SQLGraph) AddEdges(ctx context.Context, rels []*types.Relationship) (int, error) {
	for _, rel := range rels {
		if err := rel.Validate(); err != nil {
			return 0, err
		}
	}
	if len(rels) == 0 {
		return 0, nil
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, g.fail("add_edges", err)
	}
	defer tx.Rollback()

	created := 0
	for _, rel := range rels {
		isNew, err := g.upsert(ctx, tx, rel)
		if err != nil {
			return 0, g.fail("add_edges", err)
		}
		if isNew {
			created++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, g.fail("add_edges", err)
	}
	return created, nil
}

func (g *SQLGraph) upsert(ctx context.Context, tx *sql.Tx, rel *types.Relationship) (bool, error) {
	rel.ApplyDefaults()

	metadata, err := encodeMetadata(rel.Metadata)
	if err != nil {
		return false, err
	}

	now := g.now().UTC()
	rel.UpdatedAt = now

	var createdAt int64
	err = tx.QueryRowContext(ctx, g.dialect.Rebind(`SELECT created_at FROM relationships WHERE source_id = ? AND target_id = ? AND relationship_type = ?`),
		rel.SourceID, rel.TargetID, rel.RelationshipType).Scan(&createdAt)
	switch {
	case err == nil:
		rel.CreatedAt = time.Unix(0, createdAt).UTC()
		_, err = tx.ExecContext(ctx, g.dialect.Rebind(`UPDATE relationships SET weight = ?, metadata = ?, created_by = ?, updated_at = ? WHERE source_id = ? AND target_id = ? AND relationship_type = ?`),
			rel.Weight, metadata, rel.CreatedBy, now.UnixNano(), rel.SourceID, rel.TargetID, rel.RelationshipType)
		return false, err

	case errors.Is(err, sql.ErrNoRows):
		if rel.CreatedAt.IsZero() {
			rel.CreatedAt = now
		}
		_, err = tx.ExecContext(ctx, g.dialect.Rebind(`INSERT INTO relationships (`+relationshipColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			rel.SourceID, rel.TargetID, rel.RelationshipType, rel.Weight, metadata, rel.CreatedBy, rel.CreatedAt.UnixNano(), now.UnixNano())
		return err == nil, err

	default:
		return false, err
	}
}

// RemoveEdge implements Graph.
func (g *SQLGraph) RemoveEdge(ctx context.Context, sourceID, targetID, relType string) (bool, error) {
	res, err := g.db.ExecContext(ctx, g.dialect.Rebind(`DELETE FROM relationships WHERE source_id = ? AND target_id = ? AND relationship_type = ?`),
		sourceID, targetID, relType)
	if err != nil {
		return false, g.fail("remove_edge", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, g.fail("remove_edge", err)
	}
	return n > 0, nil
}

// EdgesOf implements Graph.
func (g *SQLGraph) EdgesOf(ctx context.Context, id string, dir types.Direction) ([]*types.Relationship, error) {
	var where string
	var args []interface{}
	switch dir {
	case types.DirectionOut:
		where, args = "source_id = ?", []interface{}{id}
	case types.DirectionIn:
		where, args = "target_id = ?", []interface{}{id}
	default:
		where, args = "(source_id = ? OR target_id = ?)", []interface{}{id, id}
	}

	rels, err := g.query(ctx, `SELECT `+relationshipColumns+` FROM relationships WHERE `+where+` ORDER BY created_at, source_id, target_id, relationship_type`, args...)
	if err != nil {
		return nil, g.fail("edges_of", err)
	}
	return rels, nil
}

// EdgesAmong implements Graph.
func (g *SQLGraph) EdgesAmong(ctx context.Context, ids []string) ([]*types.Relationship, error) {
	if len(ids) == 0 {
		return []*types.Relationship{}, nil
	}
	members := make(map[string]bool, len(ids))
	for _, id := range ids {
		members[id] = true
	}

	// Batches bound the source side only; targets are checked against
	// members so each edge is read once.
	out := []*types.Relationship{}
	for _, batch := range utils.Batch(ids, idBatchSize) {
		rels, err := g.query(ctx, `SELECT `+relationshipColumns+` FROM relationships WHERE source_id IN (`+store.Placeholders(len(batch))+`)`, stringArgs(batch)...)
		if err != nil {
			return nil, g.fail("edges_among", err)
		}
		for _, rel := range rels {
			if members[rel.TargetID] {
				out = append(out, rel)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.TargetID != b.TargetID {
			return a.TargetID < b.TargetID
		}
		return a.RelationshipType < b.RelationshipType
	})
	return out, nil
}

// Neighbors implements Graph.
func (g *SQLGraph) Neighbors(ctx context.Context, ids []string, relTypes []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	for _, batch := range utils.Batch(ids, idBatchSize) {
		if err := g.neighborsBatch(ctx, batch, relTypes, out); err != nil {
			return nil, g.fail("neighbors", err)
		}
	}
	return out, nil
}

// neighborsBatch adds the neighbors of batch to out. An edge is credited
// only to endpoints inside batch, so an edge spanning two batches adds one
// entry per endpoint.
func (g *SQLGraph) neighborsBatch(ctx context.Context, batch []string, relTypes []string, out map[string][]string) error {
	args := make([]interface{}, 0, len(batch)*2+len(relTypes))
	args = append(args, stringArgs(batch)...)
	args = append(args, stringArgs(batch)...)
	ph := store.Placeholders(len(batch))
	query := `SELECT source_id, target_id FROM relationships WHERE (source_id IN (` + ph + `) OR target_id IN (` + ph + `))`
	if len(relTypes) > 0 {
		query += ` AND relationship_type IN (` + store.Placeholders(len(relTypes)) + `)`
		args = append(args, stringArgs(relTypes)...)
	}

	rows, err := g.db.QueryContext(ctx, g.dialect.Rebind(query), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	inBatch := make(map[string]bool, len(batch))
	for _, id := range batch {
		inBatch[id] = true
	}
	for rows.Next() {
		var source, target string
		if err := rows.Scan(&source, &target); err != nil {
			return err
		}
		if inBatch[source] {
			out[source] = append(out[source], target)
		}
		if inBatch[target] {
			out[target] = append(out[target], source)
		}
	}
	return rows.Err()
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// Expand implements Graph.
func (g *SQLGraph) Expand(ctx context.Context, seed string, opts *ExpandOptions) ([]string, error) {
	if opts == nil {
		opts = &ExpandOptions{MaxDepth: types.DefaultMaxDepth}
	}
	return BreadthFirst(ctx, seed, opts.MaxDepth, func(ctx context.Context, frontier []string) (map[string][]string, error) {
		return g.Neighbors(ctx, frontier, opts.Types)
	})
}

// Close implements Graph. The shared database is closed by its store.
func (g *SQLGraph) Close() error {
	return nil
}

func (g *SQLGraph) query(ctx context.Context, query string, args ...interface{}) ([]*types.Relationship, error) {
	rows, err := g.db.QueryContext(ctx, g.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*types.Relationship{}
	for rows.Next() {
		var (
			rel                  types.Relationship
			metadata, createdBy  sql.NullString
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&rel.SourceID, &rel.TargetID, &rel.RelationshipType, &rel.Weight, &metadata, &createdBy, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if metadata.Valid && metadata.String != "" && metadata.String != "null" {
			if err := json.Unmarshal([]byte(metadata.String), &rel.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode relationship metadata: %w", err)
			}
		}
		rel.CreatedBy = createdBy.String
		rel.CreatedAt = time.Unix(0, createdAt).UTC()
		rel.UpdatedAt = time.Unix(0, updatedAt).UTC()
		out = append(out, &rel)
	}
	return out, rows.Err()
}

func (g *SQLGraph) fail(op string, err error) error {
	g.logger.Error("Relationship store operation failed", "op", op, "error", err)
	return types.NewStorageError(op, err)
}

func encodeMetadata(m map[string]interface{}) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode relationship metadata: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
