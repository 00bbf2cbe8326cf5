// Package graph stores directed, weighted relationships between entity ids
// and expands them breadth-first.
//
// Two backends implement Graph:
//   - SQLGraph keeps edges in a relationships table next to the entities
//     table of pkg/store (sqlite or postgres)
//   - Neo4jGraph keeps edges as RELATES relationships between EntityRef
//     nodes in Neo4j
//
// Both share BreadthFirst, so expansion semantics do not depend on the
// backend: both directions are followed, nothing is visited twice, the seed
// is never returned and a depth of zero returns nothing.
//
// DetectRelationships derives resolved_by and related_to edges from a batch
// of entities. It is quadratic and meant for offline graph builds.
package graph
