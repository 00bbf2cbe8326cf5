// Package store provides durable storage for recall entities.
//
// The Store interface covers CRUD, predicate-filtered listing and
// conjunctive keyword search. SQLStore implements it on database/sql with
// two dialects:
//   - sqlite: embedded, via github.com/ncruces/go-sqlite3 (the default)
//   - postgres: via github.com/lib/pq
//
// Usage:
//
//	s, err := store.OpenSQLite(ctx, "./recall.db", logger)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	id, err := s.Create(ctx, &types.Entity{Kind: types.KindKnowledge, Title: "..."})
//
// BreakerStore wraps any Store with a circuit breaker so that a failing
// backend is reported as types.ErrStorageUnavailable without being called.
package store
