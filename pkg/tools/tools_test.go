package tools_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/recall"
	"github.com/soundprediction/recall/pkg/graph"
	"github.com/soundprediction/recall/pkg/store"
	"github.com/soundprediction/recall/pkg/tools"
	"github.com/soundprediction/recall/pkg/types"
)

func setup(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	st, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "recall.db"), nil)
	require.NoError(t, err)
	g := graph.NewSQLGraph(st.DB(), st.Dialect(), nil)
	require.NoError(t, g.Initialize(ctx))
	client := recall.NewClient(st, g, nil, nil)
	t.Cleanup(func() { client.Close() })

	srv := tools.NewServer(client, "test", nil)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	_, err = srv.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	session, err := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil).Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

// call invokes a tool and returns its text content and error flag.
func call(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err, name)
	require.NotEmpty(t, result.Content, name)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text, result.IsError
}

func callJSON[T any](t *testing.T, session *mcp.ClientSession, name string, args map[string]any) T {
	t.Helper()
	text, isErr := call(t, session, name, args)
	require.False(t, isErr, "%s returned error: %s", name, text)
	var out T
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	return out
}

func TestListTools(t *testing.T) {
	session := setup(t)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"search", "create_entity", "get_entity", "list_entities",
		"create_relationship", "get_relationships", "search_analytics",
	}, names)
}

func TestEntityAndRelationshipTools(t *testing.T) {
	session := setup(t)

	incident := callJSON[map[string]string](t, session, "create_entity", map[string]any{
		"kind":         "incident",
		"title":        "Queue backlog on billing workers",
		"body":         "Billing workers fell behind after a deploy.",
		"metadata":     map[string]any{"tags": []string{"queue"}},
		"kind_payload": map[string]any{"severity": "high", "status": "resolved"},
	})["id"]
	require.NotEmpty(t, incident)

	fix := callJSON[map[string]string](t, session, "create_entity", map[string]any{
		"kind":  "knowledge",
		"title": "Scale billing workers with queue depth",
	})["id"]

	got := callJSON[types.Entity](t, session, "get_entity", map[string]any{"id": incident})
	payload, ok := got.Incident()
	require.True(t, ok)
	assert.Equal(t, "high", payload.Severity)

	created := callJSON[map[string]bool](t, session, "create_relationship", map[string]any{
		"source_id":         incident,
		"target_id":         fix,
		"relationship_type": "resolved_by",
	})
	assert.True(t, created["created"])

	rels := callJSON[[]types.Relationship](t, session, "get_relationships", map[string]any{"id": fix, "direction": "in"})
	require.Len(t, rels, 1)
	assert.Equal(t, incident, rels[0].SourceID)

	list := callJSON[[]types.Entity](t, session, "list_entities", map[string]any{"kind": "knowledge"})
	require.Len(t, list, 1)
	assert.Equal(t, fix, list[0].ID)

	text, isErr := call(t, session, "get_entity", map[string]any{"id": "missing"})
	assert.True(t, isErr)
	assert.Contains(t, text, "not found")

	// a missing required argument fails input validation before the handler runs
	_, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "create_entity",
		Arguments: map[string]any{"kind": "task"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")

	text, isErr = call(t, session, "create_entity", map[string]any{"kind": "task", "title": "   "})
	assert.True(t, isErr)
	assert.Contains(t, text, "title")

	_, isErr = call(t, session, "get_relationships", map[string]any{"id": fix, "direction": "up"})
	assert.True(t, isErr)
}

func TestSearchTools(t *testing.T) {
	session := setup(t)

	callJSON[map[string]string](t, session, "create_entity", map[string]any{
		"kind":  "knowledge",
		"title": "Rotating TLS certificates",
		"body":  "A guide to renewing certificates a week before expiry.",
	})

	result := callJSON[types.SearchResult](t, session, "search", map[string]any{"query": "certificates guide"})
	assert.Equal(t, types.IntentKnowledgeAcquisition, result.Intent)
	require.Len(t, result.Primary, 1)
	assert.Contains(t, result.Context, "Rotating TLS certificates")

	text, isErr := call(t, session, "search", map[string]any{"query": "x", "intent": "nonsense"})
	assert.True(t, isErr)
	assert.Contains(t, text, "nonsense")

	analytics := callJSON[types.SearchAnalytics](t, session, "search_analytics", map[string]any{})
	assert.Equal(t, 1, analytics.TotalSearches)
	assert.Equal(t, 1, analytics.IntentDistribution[types.IntentKnowledgeAcquisition])
}
