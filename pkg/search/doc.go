// Package search implements the stages of the retrieval pipeline: query
// preprocessing with intent inference, primary text search with metadata
// post-filtering, relationship expansion, scoring, context assembly and
// suggestions.
//
// The stages are independent and side-effect free apart from the storage
// calls made by Primary and Expander. The orchestrator that chains them,
// caches results and records history lives in the root recall package.
package search
