package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/soundprediction/recall/pkg/types"
)

// Neo4jGraph implements Graph on Neo4j. Entity ids are EntityRef nodes and
// edges are RELATES relationships carrying the relationship type as a
// property.
type Neo4jGraph struct {
	client   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4jGraph creates a new Neo4j graph instance.
func NewNeo4jGraph(uri, username, password, database string, logger *slog.Logger) (*Neo4jGraph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Neo4jGraph{
		client:   driver,
		database: database,
		logger:   logger,
	}, nil
}

// Initialize verifies connectivity and creates the EntityRef constraint.
func (n *Neo4jGraph) Initialize(ctx context.Context) error {
	if err := n.client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	_, err := n.write(ctx, `CREATE CONSTRAINT entity_ref_id IF NOT EXISTS FOR (e:EntityRef) REQUIRE e.id IS UNIQUE`, nil)
	if err != nil {
		return fmt.Errorf("failed to create entity ref constraint: %w", err)
	}
	return nil
}

// AddEdge implements Graph.
func (n *Neo4jGraph) AddEdge(ctx context.Context, rel *types.Relationship) (bool, error) {
	created, err := n.AddEdges(ctx, []*types.Relationship{rel})
	return created == 1, err
}

// AddEdges implements Graph.
func (n *Neo4jGraph) AddEdges(ctx context.Context, rels []*types.Relationship) (int, error) {
	for _, rel := range rels {
		if err := rel.Validate(); err != nil {
			return 0, err
		}
	}
	if len(rels) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	params := make([]map[string]any, len(rels))
	for i, rel := range rels {
		rel.ApplyDefaults()
		metadata, err := encodeMetadata(rel.Metadata)
		if err != nil {
			return 0, err
		}
		createdAt := rel.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		params[i] = map[string]any{
			"source":     rel.SourceID,
			"target":     rel.TargetID,
			"type":       rel.RelationshipType,
			"weight":     rel.Weight,
			"metadata":   metadata.String,
			"created_by": rel.CreatedBy,
			"created_at": createdAt.UnixNano(),
		}
	}

	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		created := 0
		for _, p := range params {
			res, err := tx.Run(ctx, `
				OPTIONAL MATCH (:EntityRef {id: $source})-[existing:RELATES {type: $type}]->(:EntityRef {id: $target})
				RETURN count(existing) AS n
			`, p)
			if err != nil {
				return nil, err
			}
			record, err := res.Single(ctx)
			if err != nil {
				return nil, err
			}
			if count, _ := record.Get("n"); asInt64(count) == 0 {
				created++
			}

			p["now"] = now.UnixNano()
			_, err = tx.Run(ctx, `
				MERGE (s:EntityRef {id: $source})
				MERGE (t:EntityRef {id: $target})
				MERGE (s)-[r:RELATES {type: $type}]->(t)
				ON CREATE SET r.created_at = $created_at
				SET r.weight = $weight, r.metadata = $metadata, r.created_by = $created_by, r.updated_at = $now
			`, p)
			if err != nil {
				return nil, err
			}
		}
		return created, nil
	})
	if err != nil {
		return 0, n.fail("add_edges", err)
	}
	return result.(int), nil
}

// RemoveEdge implements Graph.
func (n *Neo4jGraph) RemoveEdge(ctx context.Context, sourceID, targetID, relType string) (bool, error) {
	records, err := n.write(ctx, `
		MATCH (:EntityRef {id: $source})-[r:RELATES {type: $type}]->(:EntityRef {id: $target})
		DELETE r
		RETURN count(r) AS n
	`, map[string]any{"source": sourceID, "target": targetID, "type": relType})
	if err != nil {
		return false, n.fail("remove_edge", err)
	}
	if len(records) == 0 {
		return false, nil
	}
	count, _ := records[0].Get("n")
	return asInt64(count) > 0, nil
}

// EdgesOf implements Graph.
func (n *Neo4jGraph) EdgesOf(ctx context.Context, id string, dir types.Direction) ([]*types.Relationship, error) {
	var where string
	switch dir {
	case types.DirectionOut:
		where = "s.id = $id"
	case types.DirectionIn:
		where = "t.id = $id"
	default:
		where = "(s.id = $id OR t.id = $id)"
	}

	records, err := n.read(ctx, `
		MATCH (s:EntityRef)-[r:RELATES]->(t:EntityRef)
		WHERE `+where+`
		`+relationshipReturn, map[string]any{"id": id})
	if err != nil {
		return nil, n.fail("edges_of", err)
	}
	return recordsToRelationships(records), nil
}

// EdgesAmong implements Graph.
func (n *Neo4jGraph) EdgesAmong(ctx context.Context, ids []string) ([]*types.Relationship, error) {
	if len(ids) == 0 {
		return []*types.Relationship{}, nil
	}
	records, err := n.read(ctx, `
		MATCH (s:EntityRef)-[r:RELATES]->(t:EntityRef)
		WHERE s.id IN $ids AND t.id IN $ids
		`+relationshipReturn, map[string]any{"ids": ids})
	if err != nil {
		return nil, n.fail("edges_among", err)
	}
	return recordsToRelationships(records), nil
}

// Neighbors implements Graph with one UNWIND query per call.
func (n *Neo4jGraph) Neighbors(ctx context.Context, ids []string, relTypes []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	if relTypes == nil {
		relTypes = []string{}
	}

	records, err := n.read(ctx, `
		UNWIND $ids AS id
		MATCH (e:EntityRef {id: id})-[r:RELATES]-(m:EntityRef)
		WHERE size($types) = 0 OR r.type IN $types
		RETURN id, m.id AS neighbor
	`, map[string]any{"ids": ids, "types": relTypes})
	if err != nil {
		return nil, n.fail("neighbors", err)
	}

	for _, record := range records {
		id, _ := record.Get("id")
		neighbor, _ := record.Get("neighbor")
		from, ok1 := id.(string)
		to, ok2 := neighbor.(string)
		if ok1 && ok2 {
			out[from] = append(out[from], to)
		}
	}
	return out, nil
}

// Expand implements Graph.
func (n *Neo4jGraph) Expand(ctx context.Context, seed string, opts *ExpandOptions) ([]string, error) {
	if opts == nil {
		opts = &ExpandOptions{MaxDepth: types.DefaultMaxDepth}
	}
	return BreadthFirst(ctx, seed, opts.MaxDepth, func(ctx context.Context, frontier []string) (map[string][]string, error) {
		return n.Neighbors(ctx, frontier, opts.Types)
	})
}

// Close implements Graph.
func (n *Neo4jGraph) Close() error {
	return n.client.Close(context.Background())
}

const relationshipReturn = `
	RETURN s.id AS source_id, t.id AS target_id, r.type AS relationship_type, r.weight AS weight,
	       r.metadata AS metadata, r.created_by AS created_by, r.created_at AS created_at, r.updated_at AS updated_at
	ORDER BY created_at, source_id, target_id, relationship_type
`

func (n *Neo4jGraph) read(ctx context.Context, query string, params map[string]any) ([]*db.Record, error) {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*db.Record), nil
}

func (n *Neo4jGraph) write(ctx context.Context, query string, params map[string]any) ([]*db.Record, error) {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*db.Record), nil
}

func (n *Neo4jGraph) fail(op string, err error) error {
	n.logger.Error("Relationship store operation failed", "op", op, "backend", "neo4j", "error", err)
	return types.NewStorageError(op, err)
}

func recordsToRelationships(records []*db.Record) []*types.Relationship {
	out := make([]*types.Relationship, 0, len(records))
	for _, record := range records {
		if rel := recordToRelationship(record); rel != nil {
			out = append(out, rel)
		}
	}
	return out
}

func recordToRelationship(record *db.Record) *types.Relationship {
	source, _ := record.Get("source_id")
	target, _ := record.Get("target_id")
	relType, _ := record.Get("relationship_type")

	rel := &types.Relationship{
		SourceID:         asString(source),
		TargetID:         asString(target),
		RelationshipType: asString(relType),
	}
	if rel.SourceID == "" || rel.TargetID == "" {
		return nil
	}

	if v, ok := record.Get("weight"); ok {
		rel.Weight = asFloat64(v)
	}
	if v, ok := record.Get("created_by"); ok {
		rel.CreatedBy = asString(v)
	}
	if v, ok := record.Get("created_at"); ok {
		rel.CreatedAt = time.Unix(0, asInt64(v)).UTC()
	}
	if v, ok := record.Get("updated_at"); ok {
		rel.UpdatedAt = time.Unix(0, asInt64(v)).UTC()
	}
	if v, ok := record.Get("metadata"); ok {
		if s := asString(v); s != "" {
			_ = json.Unmarshal([]byte(s), &rel.Metadata)
		}
	}
	return rel
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	}
	return 0
}

func asFloat64(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	}
	return 0
}
