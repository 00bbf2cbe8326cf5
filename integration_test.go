package recall_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/soundprediction/recall"
	"github.com/soundprediction/recall/pkg/types"
	"github.com/soundprediction/recall/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run the whole client against an embedded SQLite database.

func TestIncidentResolvedByKnowledge(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, nil)

	fixID, err := client.CreateEntity(ctx, &types.Entity{
		Kind:    types.KindKnowledge,
		Title:   "API Timeout Fix",
		Body:    "retry with backoff",
		Payload: &types.KnowledgePayload{Domain: "operations", ConfidenceScore: 0.9},
	})
	require.NoError(t, err)
	incidentID, err := client.CreateEntity(ctx, &types.Entity{
		Kind:    types.KindIncident,
		Title:   "API timeout",
		Payload: &types.IncidentPayload{AffectedSystems: []string{"api"}},
	})
	require.NoError(t, err)
	_, err = client.CreateRelationship(ctx, &types.Relationship{
		SourceID:         incidentID,
		TargetID:         fixID,
		RelationshipType: types.RelationshipResolvedBy,
	})
	require.NoError(t, err)

	result := client.Search(ctx, "API timeout")
	require.False(t, result.Failed(), result.Error)
	assert.Equal(t, types.IntentProblemSolving, result.Intent)

	primary := entityIDs(result.Primary)
	assert.Contains(t, primary, incidentID)
	assert.Contains(t, append(primary, entityIDs(result.Related)...), fixID)

	require.Len(t, result.Relationships, 1)
	assert.Equal(t, types.RelationshipResolvedBy, result.Relationships[0].RelationshipType)
	assert.Equal(t, 2, result.TotalFound)

	assert.InDelta(t, 0.8*0.7, result.Scores[incidentID], 1e-9)
	assert.InDelta(t, 0.8*0.9, result.Scores[fixID], 1e-9)

	// problem solving puts the incident block first
	assert.Regexp(t, `^## API timeout\nKind: incident`, result.Context)
	assert.Contains(t, result.Context, "Relationships: resolved_by (1)")
}

func TestExpansionReachesUnmatchedEntities(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, nil)

	incidentID, err := client.CreateEntity(ctx, &types.Entity{Kind: types.KindIncident, Title: "Checkout outage"})
	require.NoError(t, err)
	runbookID, err := client.CreateEntity(ctx, &types.Entity{Kind: types.KindKnowledge, Title: "Payment gateway runbook"})
	require.NoError(t, err)
	_, err = client.CreateRelationship(ctx, &types.Relationship{SourceID: incidentID, TargetID: runbookID, RelationshipType: types.RelationshipResolvedBy})
	require.NoError(t, err)

	result := client.Search(ctx, "checkout")
	require.False(t, result.Failed(), result.Error)
	assert.Equal(t, []string{incidentID}, entityIDs(result.Primary))
	assert.Equal(t, []string{runbookID}, entityIDs(result.Related))
	assert.InDelta(t, 0.6*types.DefaultConfidenceScore, result.Scores[runbookID], 1e-9)

	disabled := client.SearchWithQuery(ctx, types.SearchQuery{Text: "checkout", DisableExpansion: true})
	assert.Empty(t, disabled.Related)
	assert.Equal(t, 1, disabled.TotalFound)
}

func TestEmptyQuery(t *testing.T) {
	client, _ := newTestClient(t, nil)

	for _, text := range []string{"", "   \t"} {
		result := client.Search(context.Background(), text)
		require.NotNil(t, result)
		assert.False(t, result.Failed())
		assert.Zero(t, result.TotalFound)
		assert.NotEmpty(t, result.Suggestions)
	}
}

func TestSearchCacheIdempotence(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, nil)
	for i := 0; i < 5; i++ {
		_, err := client.CreateEntity(ctx, &types.Entity{Kind: types.KindGeneric, Title: fmt.Sprintf("cache entry %d", i)})
		require.NoError(t, err)
	}

	q := types.SearchQuery{Text: "cache entry", Filters: map[string]interface{}{"category": []string{"a", "b"}}}
	first := client.SearchWithQuery(ctx, types.SearchQuery{Text: "cache entry"})
	second := client.SearchWithQuery(ctx, types.SearchQuery{Text: "cache entry"})
	assert.Equal(t, first, second)
	assert.LessOrEqual(t, second.LatencyMs, first.LatencyMs)

	history := client.SearchHistory()
	require.Len(t, history, 2)
	assert.False(t, history[0].CacheHit)
	assert.True(t, history[1].CacheHit)

	// a different filter set is a different key
	client.SearchWithQuery(ctx, q)
	assert.False(t, client.SearchHistory()[2].CacheHit)
}

func TestCachedResultsAreIsolated(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, nil)
	_, err := client.CreateEntity(ctx, &types.Entity{
		Kind:     types.KindIncident,
		Title:    "Disk full on build agents",
		Metadata: map[string]interface{}{"tags": []interface{}{"disk"}},
		Payload:  &types.IncidentPayload{AffectedSystems: []string{"ci"}},
	})
	require.NoError(t, err)

	first := client.Search(ctx, "disk full")
	require.Len(t, first.Primary, 1)
	id := first.Primary[0].ID

	first.Primary[0].Title = "changed"
	first.Primary[0].Metadata["tags"].([]interface{})[0] = "changed"
	inc, ok := first.Primary[0].Incident()
	require.True(t, ok)
	inc.AffectedSystems[0] = "changed"
	first.Scores[id] = 0
	first.Primary = append(first.Primary[:0], &types.Entity{ID: "other"})

	second := client.Search(ctx, "disk full")
	require.True(t, client.SearchHistory()[1].CacheHit)
	require.Len(t, second.Primary, 1)
	assert.Equal(t, "Disk full on build agents", second.Primary[0].Title)
	assert.Equal(t, []interface{}{"disk"}, second.Primary[0].Metadata["tags"])
	inc, ok = second.Primary[0].Incident()
	require.True(t, ok)
	assert.Equal(t, []string{"ci"}, inc.AffectedSystems)
	assert.NotZero(t, second.Scores[id])

	second.Primary[0].Title = "changed again"
	third := client.Search(ctx, "disk full")
	assert.Equal(t, "Disk full on build agents", third.Primary[0].Title)
}

func TestCacheEvictsFirstQuery(t *testing.T) {
	ctx := context.Background()
	cfg := recall.NewDefaultConfig()
	cfg.Cache.Capacity = 100
	client, _ := newTestClient(t, cfg)

	for i := 0; i <= 100; i++ {
		client.Search(ctx, fmt.Sprintf("query %d", i))
	}

	client.Search(ctx, "query 100")
	client.Search(ctx, "query 0")

	history := client.SearchHistory()
	n := len(history)
	assert.True(t, history[n-2].CacheHit, "latest query is still cached")
	assert.False(t, history[n-1].CacheHit, "first query was evicted")
}

func TestContextBudget(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, nil)
	for i := 0; i < 30; i++ {
		_, err := client.CreateEntity(ctx, &types.Entity{
			Kind:  types.KindKnowledge,
			Title: fmt.Sprintf("Budget note %d", i),
			Body:  "a fairly long explanation of how the budget is spent on context",
		})
		require.NoError(t, err)
	}

	for _, budget := range []int{1, 50, 200, 999} {
		result := client.SearchWithQuery(ctx, types.SearchQuery{Text: "budget", Limit: 30, MaxContextLength: budget})
		assert.LessOrEqual(t, utils.RuneLen(result.Context), budget)
	}
}

func TestBuildInitialGraph(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, nil)

	incidentID, err := client.CreateEntity(ctx, &types.Entity{Kind: types.KindIncident, Title: "Disk full"})
	require.NoError(t, err)
	fixID, err := client.CreateEntity(ctx, &types.Entity{
		Kind: types.KindKnowledge, Title: "Log rotation",
		Metadata: map[string]interface{}{"tags": []string{"fix"}},
	})
	require.NoError(t, err)
	taskA, err := client.CreateEntity(ctx, &types.Entity{Kind: types.KindTask, Title: "Audit", Metadata: map[string]interface{}{"tags": "security"}})
	require.NoError(t, err)
	taskB, err := client.CreateEntity(ctx, &types.Entity{Kind: types.KindTask, Title: "Patch", Metadata: map[string]interface{}{"tags": []string{"Security"}}})
	require.NoError(t, err)

	created, err := client.BuildInitialGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	rels, err := client.GetRelationships(ctx, incidentID, types.DirectionOut)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, fixID, rels[0].TargetID)
	assert.Equal(t, types.RelationshipResolvedBy, rels[0].RelationshipType)

	rels, err = client.GetRelationships(ctx, taskA, types.DirectionBoth)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, taskB, rels[0].Other(taskA))

	again, err := client.BuildInitialGraph(ctx)
	require.NoError(t, err)
	assert.Zero(t, again, "rebuilding only refreshes existing edges")
}

func TestSearchAnalytics(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, nil)
	_, err := client.CreateEntity(ctx, &types.Entity{Kind: types.KindIncident, Title: "Login error"})
	require.NoError(t, err)

	client.Search(ctx, "login error")
	client.Search(ctx, "login error")
	client.Search(ctx, "how to login")
	client.Search(ctx, "previous login")

	a := client.GetSearchAnalytics()
	assert.Equal(t, 4, a.TotalSearches)
	assert.Equal(t, 2, a.IntentDistribution[types.IntentProblemSolving])
	assert.Equal(t, 1, a.IntentDistribution[types.IntentKnowledgeAcquisition])
	assert.Equal(t, 1, a.IntentDistribution[types.IntentHistoryLookup])
	assert.InDelta(t, 0.25, a.CacheHitRate, 1e-9)
	assert.InDelta(t, 0.5, a.AvgResultCount, 1e-9)
}

func entityIDs(entities []*types.Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.ID)
	}
	return out
}
