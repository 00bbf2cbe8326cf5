// Package types defines the core data types shared by every recall package.
//
// This package contains:
//   - Entity: a typed record (knowledge, incident, task or generic) with a
//     kind-specific Payload
//   - Relationship: a directed, weighted edge between two entity ids
//   - SearchQuery / SearchResult: the transient values of one search
//   - SearchRecord / SearchAnalytics: history entries and their aggregate
//
// # Payloads
//
// The shape of Entity.Payload is chosen by Entity.Kind:
//
//	entity := &types.Entity{
//	    Kind:    types.KindKnowledge,
//	    Title:   "Restarting the ingest worker",
//	    Payload: &types.KnowledgePayload{ConfidenceScore: 0.9, Domain: "ops"},
//	}
//
// Payloads round-trip through JSON; the decoder picks the variant from the
// entity kind.
//
// # Errors
//
// Sentinel errors (ErrNotFound, ErrValidation, ErrStorageUnavailable,
// ErrTimeout) are matched with errors.Is. ValidationError and StorageError
// carry detail and match their sentinel.
package types
