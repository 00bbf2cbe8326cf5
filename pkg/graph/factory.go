package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/recall/pkg/config"
	"github.com/soundprediction/recall/pkg/store"
)

// Open creates the configured Graph.
//   - sql: edges live in the database of entities (st must be non-nil)
//   - neo4j: edges live in the Neo4j database at cfg.URI
//
// If Driver is empty, defaults to sql.
func Open(ctx context.Context, cfg config.GraphConfig, st *store.SQLStore, logger *slog.Logger) (Graph, error) {
	switch cfg.Driver {
	case "sql", "":
		if st == nil {
			return nil, fmt.Errorf("sql graph requires a sql entity store")
		}
		g := NewSQLGraph(st.DB(), st.Dialect(), logger)
		if err := g.Initialize(ctx); err != nil {
			return nil, err
		}
		return g, nil

	case "neo4j":
		if cfg.URI == "" {
			return nil, fmt.Errorf("neo4j graph requires a uri")
		}
		g, err := NewNeo4jGraph(cfg.URI, cfg.Username, cfg.Password, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		if err := g.Initialize(ctx); err != nil {
			g.Close()
			return nil, err
		}
		return g, nil

	default:
		return nil, fmt.Errorf("unsupported graph driver: %s (supported: sql, neo4j)", cfg.Driver)
	}
}
