// Package config loads the kb command configuration from YAML, a .env file
// and KB_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/viant/sqlite-kb/embed"
	"github.com/viant/sqlite-kb/index"
	"github.com/viant/sqlite-kb/logging"
	"github.com/viant/sqlite-kb/vector"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	EmbedderHashing = "hashing"
	EmbedderOllama  = "ollama"
)

// Config is the kb command configuration.
type Config struct {
	Backend     string         `yaml:"backend"`
	Database    string         `yaml:"database"`
	PostgresDSN string         `yaml:"postgresDSN"`
	Collection  Collection     `yaml:"collection"`
	Embedder    Embedder       `yaml:"embedder"`
	Log         logging.Config `yaml:"log"`
}

// Collection describes the knowledge-base collection.
type Collection struct {
	Name      string `yaml:"name"`
	Dimension int    `yaml:"dimension"`
	Metric    string `yaml:"metric"`
	Index     string `yaml:"index"`
	TextField string `yaml:"textField"`
}

// Embedder selects the embedding function.
type Embedder struct {
	Kind      string `yaml:"kind"`
	URL       string `yaml:"url"`
	Model     string `yaml:"model"`
	CacheSize int    `yaml:"cacheSize"`
}

// Default returns a SQLite configuration with the hashing embedder.
func Default() *Config {
	return &Config{
		Backend:  BackendSQLite,
		Database: "kb.sqlite",
		Collection: Collection{
			Name:      "documents",
			Dimension: 256,
			Metric:    string(index.Cosine),
			Index:     string(vector.IndexAuto),
			TextField: "text",
		},
		Embedder: Embedder{
			Kind:      EmbedderHashing,
			URL:       embed.DefaultOllamaURL,
			Model:     embed.DefaultOllamaModel,
			CacheSize: 1024,
		},
		Log: logging.Default(),
	}
}

// Load reads path (optional), then .env, then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from KB_* variables resolved by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"KB_BACKEND":      &c.Backend,
		"KB_DATABASE":     &c.Database,
		"KB_POSTGRES_DSN": &c.PostgresDSN,
		"KB_COLLECTION":   &c.Collection.Name,
		"KB_METRIC":       &c.Collection.Metric,
		"KB_INDEX":        &c.Collection.Index,
		"KB_LOG_LEVEL":    &c.Log.Level,
		"KB_EMBEDDER":     &c.Embedder.Kind,
		"KB_OLLAMA_URL":   &c.Embedder.URL,
		"KB_OLLAMA_MODEL": &c.Embedder.Model,
	}
	for key, dest := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dest = v
		}
	}
	if v, ok := lookup("KB_DIMENSION"); ok && v != "" {
		dim, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: KB_DIMENSION: %w", err)
		}
		c.Collection.Dimension = dim
	}
	return nil
}

// Validate checks the configuration and normalises names.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendSQLite:
		if c.Database == "" {
			return errors.New("config: database path is required for sqlite backend")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("config: postgresDSN is required for postgres backend")
		}
	default:
		return fmt.Errorf("config: unsupported backend %q", c.Backend)
	}
	spec := vector.CollectionSpec{Name: c.Collection.Name, Dimension: c.Collection.Dimension, Metric: vector.Metric(c.Collection.Metric)}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Collection.Metric = string(spec.Metric)
	kind, err := vector.ParseIndexKind(c.Collection.Index)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Collection.Index = string(kind)
	switch c.Embedder.Kind {
	case EmbedderHashing, EmbedderOllama:
	default:
		return fmt.Errorf("config: unsupported embedder %q", c.Embedder.Kind)
	}
	return nil
}

// CollectionSpec returns the vector collection spec.
func (c *Config) CollectionSpec() vector.CollectionSpec {
	return vector.CollectionSpec{
		Name:      c.Collection.Name,
		Dimension: c.Collection.Dimension,
		Metric:    vector.Metric(c.Collection.Metric),
	}
}
