package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration (entity store)
	Database DatabaseConfig `mapstructure:"database"`

	// Graph configuration (relationship store)
	Graph GraphConfig `mapstructure:"graph"`

	// Search pipeline configuration
	Search SearchConfig `mapstructure:"search"`

	// Cache configuration
	Cache CacheConfig `mapstructure:"cache"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
	// SQLLogs also writes error logs to the telemetry_logs table of the
	// entity database.
	SQLLogs bool `mapstructure:"sql_logs"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // color, text, json
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// DatabaseConfig holds entity store configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	URI             string        `mapstructure:"uri"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// GraphConfig holds relationship graph configuration. The sql driver
// shares the entity store database.
type GraphConfig struct {
	Driver   string `mapstructure:"driver"` // sql, neo4j
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// SearchConfig holds search pipeline configuration
type SearchConfig struct {
	DefaultLimit     int           `mapstructure:"default_limit"`
	MaxDepth         int           `mapstructure:"max_depth"`
	MaxContextLength int           `mapstructure:"max_context_length"`
	StageTimeout     time.Duration `mapstructure:"stage_timeout"`
	ExpansionWorkers int           `mapstructure:"expansion_workers"`
}

// CacheConfig holds result cache and history configuration
type CacheConfig struct {
	Capacity    int `mapstructure:"capacity"`
	HistorySize int `mapstructure:"history_size"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "color"},
		Server: ServerConfig{Host: "localhost", Port: 8080, Mode: "debug"},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			URI:             "./recall.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Graph: GraphConfig{Driver: "sql", Database: "neo4j"},
		Search: SearchConfig{
			DefaultLimit:     10,
			MaxDepth:         2,
			MaxContextLength: 4000,
			StageTimeout:     5 * time.Second,
			ExpansionWorkers: 4,
		},
		Cache: CacheConfig{Capacity: 100, HistorySize: 1000},
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      1,
			Interval:         60,
			Timeout:          30,
			ReadyToTripRatio: 0.6,
		},
	}
}

// setDefaults sets default configuration values
func setDefaults() {
	d := Default()

	// Log defaults
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)

	// Server defaults
	viper.SetDefault("server.host", d.Server.Host)
	viper.SetDefault("server.port", d.Server.Port)
	viper.SetDefault("server.mode", d.Server.Mode)

	// Database defaults
	viper.SetDefault("database.driver", d.Database.Driver)
	viper.SetDefault("database.uri", d.Database.URI)
	viper.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	viper.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	viper.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)

	// Graph defaults
	viper.SetDefault("graph.driver", d.Graph.Driver)
	viper.SetDefault("graph.database", d.Graph.Database)

	// Search defaults
	viper.SetDefault("search.default_limit", d.Search.DefaultLimit)
	viper.SetDefault("search.max_depth", d.Search.MaxDepth)
	viper.SetDefault("search.max_context_length", d.Search.MaxContextLength)
	viper.SetDefault("search.stage_timeout", d.Search.StageTimeout)
	viper.SetDefault("search.expansion_workers", d.Search.ExpansionWorkers)

	// Cache defaults
	viper.SetDefault("cache.capacity", d.Cache.Capacity)
	viper.SetDefault("cache.history_size", d.Cache.HistorySize)

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", d.CircuitBreaker.Enabled)
	viper.SetDefault("circuit_breaker.max_requests", d.CircuitBreaker.MaxRequests)
	viper.SetDefault("circuit_breaker.interval", d.CircuitBreaker.Interval)
	viper.SetDefault("circuit_breaker.timeout", d.CircuitBreaker.Timeout)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", d.CircuitBreaker.ReadyToTripRatio)

	// Telemetry defaults
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", filepath.Join(home, ".recall", "telemetry"))
	}
	viper.SetDefault("telemetry.sql_logs", false)
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// Entity store
	if dbDriver := os.Getenv("RECALL_DB_DRIVER"); dbDriver != "" {
		config.Database.Driver = dbDriver
	}
	if dbURI := os.Getenv("RECALL_DB_URI"); dbURI != "" {
		config.Database.URI = dbURI
	}

	// Graph store
	if graphDriver := os.Getenv("RECALL_GRAPH_DRIVER"); graphDriver != "" {
		config.Graph.Driver = graphDriver
	}
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Graph.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Graph.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Graph.Password = pass
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil && p > 0 {
			config.Server.Port = p
		}
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
