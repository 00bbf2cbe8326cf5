// Package recall provides a retrieval engine over a store of typed knowledge,
// incident and task entities linked by a relationship graph.
//
// A search runs text matching over the entity store, expands the matches
// along the graph, scores everything and assembles a bounded context string
// suitable for a language model prompt. Searches always return a result:
// storage failures and timeouts produce an empty result that explains what
// went wrong.
//
// # Basic Usage
//
//	ctx := context.Background()
//	st, err := store.OpenSQLite(ctx, "./recall.db", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	g := graph.NewSQLGraph(st.DB(), st.Dialect(), nil)
//	if err := g.Initialize(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	client := recall.NewClient(st, g, nil, nil)
//	defer client.Close()
//
// # Adding Entities
//
//	incidentID, _ := client.CreateEntity(ctx, &types.Entity{
//		Kind:    types.KindIncident,
//		Title:   "API timeout",
//		Payload: &types.IncidentPayload{AffectedSystems: []string{"api"}},
//	})
//	fixID, _ := client.CreateEntity(ctx, &types.Entity{
//		Kind:    types.KindKnowledge,
//		Title:   "API Timeout Fix",
//		Body:    "retry with backoff",
//		Payload: &types.KnowledgePayload{Domain: "operations", ConfidenceScore: 0.9},
//	})
//	client.CreateRelationship(ctx, &types.Relationship{
//		SourceID:         incidentID,
//		TargetID:         fixID,
//		RelationshipType: types.RelationshipResolvedBy,
//	})
//
// # Searching
//
//	result := client.Search(ctx, "API timeout")
//	fmt.Println(result.Context)
//
// Structured queries restrict kinds, filter on metadata and control
// expansion:
//
//	result = client.SearchWithQuery(ctx, types.SearchQuery{
//		Text:    "timeout",
//		Kinds:   []types.EntityKind{types.KindIncident},
//		Filters: map[string]interface{}{"priority": []string{"high", "medium"}},
//	})
//
// Identical queries are answered from a bounded result cache. Every search
// is recorded in a capped history summarized by GetSearchAnalytics.
package recall
