// Package tools exposes the recall client as MCP tools.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/soundprediction/recall"
	"github.com/soundprediction/recall/pkg/store"
	"github.com/soundprediction/recall/pkg/types"
)

// Tools holds the client used by the tool handlers.
type Tools struct {
	Client recall.Recall
	Logger *slog.Logger
}

// --- Input types ---

type SearchInput struct {
	Query             string                 `json:"query" jsonschema:"Free text to search for"`
	Kinds             []string               `json:"kinds,omitempty" jsonschema:"Restrict results to these entity kinds (knowledge, incident, task)"`
	Filters           map[string]interface{} `json:"filters,omitempty" jsonschema:"Metadata or payload fields that results must match"`
	Limit             int                    `json:"limit,omitempty" jsonschema:"Maximum number of primary results"`
	Intent            string                 `json:"intent,omitempty" jsonschema:"One of problem_solving, knowledge_acquisition, history_lookup, general; inferred when empty"`
	DisableExpansion  bool                   `json:"disable_expansion,omitempty" jsonschema:"Skip relationship expansion"`
	MaxDepth          int                    `json:"max_depth,omitempty" jsonschema:"Maximum relationship hops from a primary result"`
	RelationshipTypes []string               `json:"relationship_types,omitempty" jsonschema:"Only follow these relationship types"`
}

type CreateEntityInput struct {
	Kind     string                 `json:"kind" jsonschema:"Entity kind (knowledge, incident, task or any other name)"`
	Title    string                 `json:"title" jsonschema:"Entity title"`
	Body     string                 `json:"body,omitempty" jsonschema:"Entity text"`
	Metadata map[string]interface{} `json:"metadata,omitempty" jsonschema:"Caller-defined fields such as tags, status, priority and category"`
	Payload  map[string]interface{} `json:"kind_payload,omitempty" jsonschema:"Kind specific fields"`
}

type EntityIDInput struct {
	ID string `json:"id" jsonschema:"Entity id"`
}

type ListEntitiesInput struct {
	Kind   string `json:"kind,omitempty" jsonschema:"Only list entities of this kind"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of entities (default 100)"`
	Offset int    `json:"offset,omitempty" jsonschema:"Number of entities to skip"`
}

type CreateRelationshipInput struct {
	SourceID         string  `json:"source_id" jsonschema:"Id of the source entity"`
	TargetID         string  `json:"target_id" jsonschema:"Id of the target entity"`
	RelationshipType string  `json:"relationship_type" jsonschema:"Relationship type such as resolved_by or related_to"`
	Weight           float64 `json:"weight,omitempty" jsonschema:"Edge weight (default 1.0)"`
}

type GetRelationshipsInput struct {
	ID        string `json:"id" jsonschema:"Entity id"`
	Direction string `json:"direction,omitempty" jsonschema:"out, in or both (default both)"`
}

type EmptyInput struct{}

// NewServer creates an MCP server with every recall tool registered.
func NewServer(client recall.Recall, version string, logger *slog.Logger) *mcp.Server {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tools{Client: client, Logger: logger}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "recall",
		Version: version,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search",
		Description: "Search stored knowledge, incidents and tasks. Returns ranked entities, related entities and an assembled context",
	}, t.Search)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_entity",
		Description: "Store a new entity and return its id",
	}, t.CreateEntity)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_entity",
		Description: "Retrieve one entity by id",
	}, t.GetEntity)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_entities",
		Description: "List stored entities, newest first, optionally restricted to one kind",
	}, t.ListEntities)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_relationship",
		Description: "Create or update a directed relationship between two entities",
	}, t.CreateRelationship)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_relationships",
		Description: "List the relationships of an entity",
	}, t.GetRelationships)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_analytics",
		Description: "Summarize recent searches: intent distribution, latency, result counts and cache hit rate",
	}, t.SearchAnalytics)

	return srv
}

// --- Handlers ---

func (t *Tools) Search(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
	if input.Limit < 0 || input.MaxDepth < 0 {
		return toolError("limit and max_depth must not be negative"), nil, nil
	}
	intent, ok := types.ParseIntent(input.Intent)
	if input.Intent != "" && !ok {
		return toolError("Unknown intent %q", input.Intent), nil, nil
	}

	q := types.SearchQuery{
		Text:              input.Query,
		Filters:           input.Filters,
		Limit:             input.Limit,
		Intent:            intent,
		DisableExpansion:  input.DisableExpansion,
		MaxDepth:          input.MaxDepth,
		RelationshipTypes: input.RelationshipTypes,
	}
	for _, k := range input.Kinds {
		q.Kinds = append(q.Kinds, types.EntityKind(k))
	}

	result := t.Client.SearchWithQuery(ctx, q)
	if result.Failed() {
		t.Logger.Warn("Search tool returned a degraded result", "query", input.Query, "error", result.Error)
	}
	return toolJSON(result)
}

func (t *Tools) CreateEntity(ctx context.Context, _ *mcp.CallToolRequest, input CreateEntityInput) (*mcp.CallToolResult, any, error) {
	e := &types.Entity{
		Kind:     types.EntityKind(input.Kind),
		Title:    input.Title,
		Body:     input.Body,
		Metadata: input.Metadata,
	}
	if len(input.Payload) > 0 {
		raw, err := json.Marshal(input.Payload)
		if err != nil {
			return toolError("Invalid kind_payload: %v", err), nil, nil
		}
		if e.Payload, err = types.DecodePayload(e.Kind, raw); err != nil {
			return toolError("Invalid kind_payload: %v", err), nil, nil
		}
	}

	id, err := t.Client.CreateEntity(ctx, e)
	if err != nil {
		return toolError("Failed to create entity: %v", err), nil, nil
	}
	t.Logger.Info("Entity created via MCP", "entity_id", id, "kind", e.Kind)
	return toolJSON(map[string]string{"id": id})
}

func (t *Tools) GetEntity(ctx context.Context, _ *mcp.CallToolRequest, input EntityIDInput) (*mcp.CallToolResult, any, error) {
	e, err := t.Client.GetEntity(ctx, input.ID)
	if err != nil {
		return toolError("Failed to get entity: %v", err), nil, nil
	}
	if e == nil {
		return toolError("Entity %q not found", input.ID), nil, nil
	}
	return toolJSON(e)
}

func (t *Tools) ListEntities(ctx context.Context, _ *mcp.CallToolRequest, input ListEntitiesInput) (*mcp.CallToolResult, any, error) {
	entities, err := t.Client.ListEntities(ctx, &store.ListOptions{
		Kind:   types.EntityKind(input.Kind),
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return toolError("Failed to list entities: %v", err), nil, nil
	}
	return toolJSON(entities)
}

func (t *Tools) CreateRelationship(ctx context.Context, _ *mcp.CallToolRequest, input CreateRelationshipInput) (*mcp.CallToolResult, any, error) {
	created, err := t.Client.CreateRelationship(ctx, &types.Relationship{
		SourceID:         input.SourceID,
		TargetID:         input.TargetID,
		RelationshipType: input.RelationshipType,
		Weight:           input.Weight,
		CreatedBy:        "mcp",
	})
	if err != nil {
		return toolError("Failed to create relationship: %v", err), nil, nil
	}
	return toolJSON(map[string]bool{"created": created})
}

func (t *Tools) GetRelationships(ctx context.Context, _ *mcp.CallToolRequest, input GetRelationshipsInput) (*mcp.CallToolResult, any, error) {
	dir, err := types.ParseDirection(input.Direction)
	if err != nil {
		return toolError("%v", err), nil, nil
	}
	rels, err := t.Client.GetRelationships(ctx, input.ID, dir)
	if err != nil {
		return toolError("Failed to get relationships: %v", err), nil, nil
	}
	return toolJSON(rels)
}

func (t *Tools) SearchAnalytics(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, any, error) {
	return toolJSON(t.Client.GetSearchAnalytics())
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
