// Package cache holds the shared mutable state of the search path: a
// bounded result cache with insertion-order eviction and the capped search
// history behind search analytics. Both are safe for concurrent use.
package cache
