package recall

import (
	"context"
	"errors"
	"fmt"

	"github.com/soundprediction/recall/pkg/graph"
	"github.com/soundprediction/recall/pkg/store"
	"github.com/soundprediction/recall/pkg/types"
)

// buildPageSize is the page size used to scan entities when building the
// initial graph.
const buildPageSize = 500

// CreateEntity implements EntityManager.
func (c *Client) CreateEntity(ctx context.Context, e *types.Entity) (string, error) {
	id, err := c.store.Create(ctx, e)
	if err != nil {
		return "", fmt.Errorf("failed to create entity: %w", err)
	}
	c.logger.Debug("Entity created", "entity_id", id, "kind", e.Kind)
	return id, nil
}

// GetEntity implements EntityManager.
func (c *Client) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	e, err := c.store.Get(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity %s: %w", id, err)
	}
	return e, nil
}

// UpdateEntity implements EntityManager.
func (c *Client) UpdateEntity(ctx context.Context, e *types.Entity) (bool, error) {
	ok, err := c.store.Update(ctx, e)
	if err != nil {
		return false, fmt.Errorf("failed to update entity: %w", err)
	}
	if !ok {
		c.logger.Debug("Update of unknown entity ignored", "entity_id", e.ID)
	}
	return ok, nil
}

// DeleteEntity implements EntityManager.
func (c *Client) DeleteEntity(ctx context.Context, id string) (bool, error) {
	ok, err := c.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete entity %s: %w", id, err)
	}
	return ok, nil
}

// ListEntities implements EntityManager.
func (c *Client) ListEntities(ctx context.Context, opts *store.ListOptions) ([]*types.Entity, error) {
	entities, err := c.store.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	return entities, nil
}

// CreateRelationship implements RelationshipManager.
func (c *Client) CreateRelationship(ctx context.Context, rel *types.Relationship) (bool, error) {
	created, err := c.graph.AddEdge(ctx, rel)
	if err != nil {
		return false, fmt.Errorf("failed to create relationship: %w", err)
	}
	return created, nil
}

// DeleteRelationship implements RelationshipManager.
func (c *Client) DeleteRelationship(ctx context.Context, sourceID, targetID, relType string) (bool, error) {
	ok, err := c.graph.RemoveEdge(ctx, sourceID, targetID, relType)
	if err != nil {
		return false, fmt.Errorf("failed to delete relationship: %w", err)
	}
	return ok, nil
}

// GetRelationships implements RelationshipManager.
func (c *Client) GetRelationships(ctx context.Context, id string, dir types.Direction) ([]*types.Relationship, error) {
	if dir == "" {
		dir = types.DirectionBoth
	}
	rels, err := c.graph.EdgesOf(ctx, id, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationships of %s: %w", id, err)
	}
	return rels, nil
}

// BuildInitialGraph scans every stored entity, detects relationships
// between them and upserts the result. It compares every pair of entities
// and is meant for offline use. It returns the number of new relationships.
func (c *Client) BuildInitialGraph(ctx context.Context) (int, error) {
	var all []*types.Entity
	for offset := 0; ; offset += buildPageSize {
		page, err := c.store.List(ctx, &store.ListOptions{Limit: buildPageSize, Offset: offset})
		if err != nil {
			return 0, fmt.Errorf("failed to load entities: %w", err)
		}
		all = append(all, page...)
		if len(page) < buildPageSize {
			break
		}
	}

	detected := graph.DetectRelationships(all)
	if len(detected) == 0 {
		c.logger.Info("No relationships detected", "entities", len(all))
		return 0, nil
	}

	created, err := c.graph.AddEdges(ctx, detected)
	if err != nil {
		return 0, fmt.Errorf("failed to store detected relationships: %w", err)
	}
	c.logger.Info("Initial graph built",
		"entities", len(all), "detected", len(detected), "created", created)
	return created, nil
}
