package recall

import (
	"context"

	"github.com/soundprediction/recall/pkg/store"
	"github.com/soundprediction/recall/pkg/types"
)

// The Recall interface is composed from these smaller interfaces. Consumers
// such as the HTTP server and the MCP tools depend on the ones they use.

// EntityManager provides entity CRUD.
type EntityManager interface {
	// CreateEntity validates and stores e, returning its id.
	CreateEntity(ctx context.Context, e *types.Entity) (string, error)

	// GetEntity returns the entity with id, or nil when it does not exist.
	GetEntity(ctx context.Context, id string) (*types.Entity, error)

	// UpdateEntity replaces an entity and reports whether it existed.
	UpdateEntity(ctx context.Context, e *types.Entity) (bool, error)

	// DeleteEntity removes an entity and reports whether it existed. Its
	// relationships are left in place.
	DeleteEntity(ctx context.Context, id string) (bool, error)

	// ListEntities returns entities matching opts, newest first.
	ListEntities(ctx context.Context, opts *store.ListOptions) ([]*types.Entity, error)
}

// RelationshipManager provides relationship operations.
type RelationshipManager interface {
	// CreateRelationship upserts rel and reports whether it was new.
	// Endpoints are not required to exist.
	CreateRelationship(ctx context.Context, rel *types.Relationship) (bool, error)

	// DeleteRelationship removes one relationship and reports whether it
	// existed.
	DeleteRelationship(ctx context.Context, sourceID, targetID, relType string) (bool, error)

	// GetRelationships returns the relationships touching id.
	GetRelationships(ctx context.Context, id string, dir types.Direction) ([]*types.Relationship, error)
}

// Searcher runs searches. Search methods never fail; failures are reported
// through SearchResult.Error and SearchResult.Context.
type Searcher interface {
	Search(ctx context.Context, text string) *types.SearchResult
	SearchWithQuery(ctx context.Context, q types.SearchQuery) *types.SearchResult
}

// Analyzer reports on past searches.
type Analyzer interface {
	GetSearchAnalytics() types.SearchAnalytics
	SearchHistory() []types.SearchRecord
}
