package recall

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/soundprediction/recall/pkg/cache"
	"github.com/soundprediction/recall/pkg/config"
	"github.com/soundprediction/recall/pkg/graph"
	"github.com/soundprediction/recall/pkg/search"
	"github.com/soundprediction/recall/pkg/store"
	"github.com/soundprediction/recall/pkg/types"
)

// Recall is the complete client interface. It is composed from the smaller
// interfaces in interfaces.go.
type Recall interface {
	EntityManager
	RelationshipManager
	Searcher
	Analyzer

	// BuildInitialGraph derives relationships between all stored entities.
	BuildInitialGraph(ctx context.Context) (int, error)

	// Ping checks that the entity store is reachable.
	Ping(ctx context.Context) error

	// Close releases the graph and the store.
	Close() error
}

// Client is the main implementation of the Recall interface.
type Client struct {
	store  store.Store
	graph  graph.Graph
	config *Config
	logger *slog.Logger

	primary  *search.Primary
	expander *search.Expander
	cache    *cache.FIFO[*types.SearchResult]
	history  *cache.History

	now func() time.Time
}

// Config holds configuration for the client.
type Config struct {
	Search config.SearchConfig
	Cache  config.CacheConfig
}

// NewDefaultConfig returns the client configuration defaults.
func NewDefaultConfig() *Config {
	d := config.Default()
	return &Config{Search: d.Search, Cache: d.Cache}
}

// NewConfig extracts the client configuration from the application config.
func NewConfig(cfg *config.Config) *Config {
	if cfg == nil {
		return NewDefaultConfig()
	}
	return &Config{Search: cfg.Search, Cache: cfg.Cache}
}

// NewClient creates a client over an entity store and a relationship graph.
// A nil config uses the defaults.
func NewClient(st store.Store, g graph.Graph, cfg *Config, logger *slog.Logger) *Client {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		store:    st,
		graph:    g,
		config:   cfg,
		logger:   logger,
		primary:  search.NewPrimary(st, logger),
		expander: search.NewExpander(g, st, cfg.Search.ExpansionWorkers, logger),
		cache:    cache.NewFIFO[*types.SearchResult](cfg.Cache.Capacity),
		history:  cache.NewHistory(cfg.Cache.HistorySize),
		now:      time.Now,
	}
}

// GetStore returns the underlying entity store.
func (c *Client) GetStore() store.Store {
	return c.store
}

// GetGraph returns the underlying relationship graph.
func (c *Client) GetGraph() graph.Graph {
	return c.graph
}

// Ping checks that the entity store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Close closes the graph and then the store.
func (c *Client) Close() error {
	var result error
	if err := c.graph.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.store.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}

var _ Recall = (*Client)(nil)
