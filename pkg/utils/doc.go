// Package utils provides helpers shared by the recall packages.
//
// This package contains:
//   - Bounded fan-out over a slice of items (concurrent.go)
//   - Panic recovery for goroutines (recovery.go)
//   - Text tokenizing and budget helpers (text.go)
package utils
