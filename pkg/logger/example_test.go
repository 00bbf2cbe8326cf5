package logger_test

import (
	"log/slog"
	"os"

	"github.com/soundprediction/recall/pkg/logger"
)

func ExampleNewDefaultLogger() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Debug("This is a debug message")
	log.Info("This is an info message")
	log.Info("Entity created", "entity_id", "incident-42") // Will be green in terminal
	log.Warn("This is a warning message")                  // Will be yellow in terminal
	log.Error("This is an error message")                  // Will be red in terminal
}

func ExampleNewColorHandler() {
	log := slog.New(logger.NewColorHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})).With("component", "search")
	_ = log
}
