package store

import (
	"context"

	"github.com/soundprediction/recall/pkg/types"
)

// Metadata keys that List pushes down to the database. Other filter keys
// are ignored by List.
var ListFilterKeys = []string{"status", "priority", "category"}

// DefaultListLimit is used when ListOptions.Limit is not positive.
const DefaultListLimit = 100

// Store is the entity persistence interface.
type Store interface {
	// Create persists e and returns its id. A missing id is generated and a
	// missing payload is filled with the kind defaults. e is updated in place.
	Create(ctx context.Context, e *types.Entity) (string, error)

	// Get returns the entity with id or types.ErrNotFound.
	Get(ctx context.Context, id string) (*types.Entity, error)

	// GetMany returns the entities with the given ids in the order given.
	// Unknown ids are skipped.
	GetMany(ctx context.Context, ids []string) ([]*types.Entity, error)

	// Update replaces the stored entity with e.ID. It reports false when no
	// such entity exists. created_at is preserved and updated_at refreshed.
	Update(ctx context.Context, e *types.Entity) (bool, error)

	// Delete removes the entity and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// List returns entities matching opts, newest first.
	List(ctx context.Context, opts *ListOptions) ([]*types.Entity, error)

	// SearchByText returns entities whose title or body contains every
	// whitespace separated token of query, ignoring case.
	SearchByText(ctx context.Context, query string, opts *TextSearchOptions) ([]*types.Entity, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// ListOptions selects entities for List.
type ListOptions struct {
	Kind    types.EntityKind
	Limit   int
	Offset  int
	Filters map[string]interface{}
}

// TextSearchOptions restricts SearchByText.
type TextSearchOptions struct {
	Kinds       []types.EntityKind
	Limit       int
	NewestFirst bool
}
