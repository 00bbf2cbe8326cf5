package recall

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/soundprediction/recall"
	"github.com/soundprediction/recall/pkg/alert"
	"github.com/soundprediction/recall/pkg/config"
	"github.com/soundprediction/recall/pkg/graph"
	recallLogger "github.com/soundprediction/recall/pkg/logger"
	"github.com/soundprediction/recall/pkg/store"
	"github.com/soundprediction/recall/pkg/telemetry"
)

// app holds what every command needs: configuration, logger and client.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *recall.Client
	parquet *telemetry.ParquetHandler
}

// newApp loads the configuration, applies flag overrides and opens the
// entity store and the relationship graph.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	overrideStorageFlags(cmd, cfg)

	a := &app{cfg: cfg}
	handler := baseHandler(cfg.Log)

	if cfg.Telemetry.ParquetPath != "" {
		parquetHandler, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to initialize error tracking: %v\n", err)
		} else {
			a.parquet = parquetHandler
			handler = parquetHandler
		}
	}
	a.logger = slog.New(handler)

	st, err := store.Open(ctx, cfg.Database, a.logger)
	if err != nil {
		a.flush()
		return nil, fmt.Errorf("failed to open entity store: %w", err)
	}

	if cfg.Telemetry.SQLLogs {
		sqlHandler, err := telemetry.NewSQLHandler(ctx, handler, st.DB(), st.Dialect())
		if err != nil {
			a.logger.Warn("SQL error logging disabled", "error", err)
		} else {
			a.logger = slog.New(sqlHandler)
		}
	}

	g, err := graph.Open(ctx, cfg.Graph, st, a.logger)
	if err != nil {
		st.Close()
		a.flush()
		return nil, fmt.Errorf("failed to open relationship graph: %w", err)
	}

	var (
		entityStore store.Store = st
		edgeGraph   graph.Graph = g
	)
	if cfg.CircuitBreaker.Enabled {
		alerter := alert.New(cfg.Alert, a.logger)
		entityStore = store.NewBreakerStore(st, cfg.CircuitBreaker, alerter, a.logger)
		edgeGraph = graph.NewBreakerGraph(g, cfg.CircuitBreaker, alerter, a.logger)
	}

	a.client = recall.NewClient(entityStore, edgeGraph, recall.NewConfig(cfg), a.logger)
	a.logger.Debug("Recall initialized",
		"db_driver", cfg.Database.Driver,
		"graph_driver", cfg.Graph.Driver,
		"circuit_breaker", cfg.CircuitBreaker.Enabled)
	return a, nil
}

// Close closes the client and flushes buffered telemetry.
func (a *app) Close() error {
	var result *multierror.Error
	if err := a.client.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := a.flush(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (a *app) flush() error {
	if a.parquet == nil {
		return nil
	}
	return a.parquet.Flush()
}

// baseHandler builds the console handler selected by the log format.
func baseHandler(cfg config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: recallLogger.ParseLevel(cfg.Level)}
	switch cfg.Format {
	case "json":
		return slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		return slog.NewTextHandler(os.Stderr, opts)
	}
	return recallLogger.NewColorHandler(os.Stderr, opts)
}

// addStorageFlags registers the storage flags shared by every command.
func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().String("db-driver", "sqlite", "Entity store driver (sqlite, postgres)")
	cmd.Flags().String("db-uri", "./recall.db", "Entity store path or DSN")
	cmd.Flags().String("graph-driver", "sql", "Relationship graph driver (sql, neo4j)")
	cmd.Flags().String("graph-uri", "", "Neo4j URI (graph-driver neo4j only)")
	cmd.Flags().String("telemetry-parquet-path", "", "Path to directory for telemetry (error logs and search history)")
}

func overrideStorageFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("db-driver") {
		cfg.Database.Driver, _ = cmd.Flags().GetString("db-driver")
	}
	if cmd.Flags().Changed("db-uri") {
		cfg.Database.URI, _ = cmd.Flags().GetString("db-uri")
	}
	if cmd.Flags().Changed("graph-driver") {
		cfg.Graph.Driver, _ = cmd.Flags().GetString("graph-driver")
	}
	if cmd.Flags().Changed("graph-uri") {
		cfg.Graph.URI, _ = cmd.Flags().GetString("graph-uri")
	}
	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
	}
}
