package main

import (
	"log/slog"

	"github.com/soundprediction/recall/pkg/logger"
)

func main() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Info("============================================")
	log.Info("    Recall Colored Logger Demo")
	log.Info("============================================")

	log.Debug("Debug message - dimmed")
	log.Info("Info message - standard color")
	log.Info("Entity created", "entity_id", "incident-42", "kind", "incident")
	log.Info("Initial graph built", "entities", 120, "detected", 48, "created", 31)
	log.Info("Search complete", "query", "api timeout", "intent", "problem_solving", "latency_ms", 3.2)
	log.Warn("Search failed", "query", "api timeout", "error", "primary_search failed: deadline exceeded")
	log.Error("Circuit breaker opened", "name", "entity-store")
}
