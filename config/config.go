// Package config provides configuration loading and management for Semgraph.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Semgraph configuration
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Ontology  OntologyConfig  `yaml:"ontology"`
	Traversal TraversalConfig `yaml:"traversal"`
	NATS      NATSConfig      `yaml:"nats"`
	Log       LogConfig       `yaml:"log"`
}

// StoreConfig configures the triple store connection
type StoreConfig struct {
	// Endpoint is the store's base URL (e.g., "http://localhost:3030/ds")
	Endpoint string `yaml:"endpoint"`
	// QueryPath is the SPARQL query service path (default: /query)
	QueryPath string `yaml:"query_path"`
	// UpdatePath is the SPARQL update service path (default: /update)
	UpdatePath string `yaml:"update_path"`
	// DataPath is the graph store protocol path (default: /data)
	DataPath string `yaml:"data_path"`
	// Timeout is the maximum time to wait for store responses
	Timeout time.Duration `yaml:"timeout"`
}

// OntologyConfig configures the ontology registry cache
type OntologyConfig struct {
	// CacheTTL is how long a loaded ontology stays fresh
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// CacheCapacity bounds how many ontologies stay cached
	CacheCapacity int `yaml:"cache_capacity"`
}

// TraversalConfig configures graph traversal behavior
type TraversalConfig struct {
	// Fanout bounds concurrent frontier expansions per BFS level
	Fanout int `yaml:"fanout"`
}

// NATSConfig configures the NATS connection for mutation events
type NATSConfig struct {
	// URL is the NATS server URL (empty = notifications disabled)
	URL string `yaml:"url"`
	// SubjectPrefix prefixes every published subject (default: semgraph)
	SubjectPrefix string `yaml:"subject_prefix"`
}

// LogConfig configures logging output
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Endpoint:   "http://localhost:3030/ds",
			QueryPath:  "/query",
			UpdatePath: "/update",
			DataPath:   "/data",
			Timeout:    30 * time.Second,
		},
		Ontology: OntologyConfig{
			CacheTTL:      time.Hour,
			CacheCapacity: 32,
		},
		Traversal: TraversalConfig{
			Fanout: 8,
		},
		NATS: NATSConfig{
			URL:           "",
			SubjectPrefix: "semgraph",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Store.Endpoint == "" {
		return fmt.Errorf("store.endpoint is required")
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store.timeout must be positive")
	}
	if c.Ontology.CacheCapacity < 1 {
		return fmt.Errorf("ontology.cache_capacity must be at least 1")
	}
	if c.Traversal.Fanout < 1 {
		return fmt.Errorf("traversal.fanout must be at least 1")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

// LogLevel maps the configured level string onto slog.Level
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Store
	if other.Store.Endpoint != "" {
		c.Store.Endpoint = other.Store.Endpoint
	}
	if other.Store.QueryPath != "" {
		c.Store.QueryPath = other.Store.QueryPath
	}
	if other.Store.UpdatePath != "" {
		c.Store.UpdatePath = other.Store.UpdatePath
	}
	if other.Store.DataPath != "" {
		c.Store.DataPath = other.Store.DataPath
	}
	if other.Store.Timeout != 0 {
		c.Store.Timeout = other.Store.Timeout
	}

	// Ontology
	if other.Ontology.CacheTTL != 0 {
		c.Ontology.CacheTTL = other.Ontology.CacheTTL
	}
	if other.Ontology.CacheCapacity != 0 {
		c.Ontology.CacheCapacity = other.Ontology.CacheCapacity
	}

	// Traversal
	if other.Traversal.Fanout != 0 {
		c.Traversal.Fanout = other.Traversal.Fanout
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SubjectPrefix != "" {
		c.NATS.SubjectPrefix = other.NATS.SubjectPrefix
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}
