package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/sqlite-kb/vector"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, vector.CollectionSpec{Name: "documents", Dimension: 256, Metric: vector.Cosine}, cfg.CollectionSpec())
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: sqlite
database: /tmp/notes.sqlite
collection:
  name: notes
  dimension: 64
  metric: l2
  index: cover
embedder:
  kind: hashing
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/notes.sqlite", cfg.Database)
	assert.Equal(t, "notes", cfg.Collection.Name)
	assert.Equal(t, 64, cfg.Collection.Dimension)
	assert.Equal(t, "euclidean", cfg.Collection.Metric)
	assert.Equal(t, "vptree", cfg.Collection.Index)
	assert.Equal(t, "text", cfg.Collection.TextField)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"KB_BACKEND":      "postgres",
		"KB_POSTGRES_DSN": "postgres://localhost/kb",
		"KB_COLLECTION":   "notes",
		"KB_DIMENSION":    "768",
		"KB_EMBEDDER":     "ollama",
		"KB_OLLAMA_MODEL": "mxbai-embed-large",
		"KB_DATABASE":     "",
	}))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, "kb.sqlite", cfg.Database)
	assert.Equal(t, 768, cfg.Collection.Dimension)
	assert.Equal(t, "mxbai-embed-large", cfg.Embedder.Model)

	err = cfg.ApplyEnv(lookupFrom(map[string]string{"KB_DIMENSION": "wide"}))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	type testCase struct {
		description string
		mutate      func(c *Config)
	}
	testCases := []testCase{
		{description: "unknown backend", mutate: func(c *Config) { c.Backend = "mongo" }},
		{description: "postgres without dsn", mutate: func(c *Config) { c.Backend = BackendPostgres }},
		{description: "sqlite without path", mutate: func(c *Config) { c.Database = "" }},
		{description: "zero dimension", mutate: func(c *Config) { c.Collection.Dimension = 0 }},
		{description: "unknown metric", mutate: func(c *Config) { c.Collection.Metric = "jaccard" }},
		{description: "unknown index", mutate: func(c *Config) { c.Collection.Index = "hnsw" }},
		{description: "unknown embedder", mutate: func(c *Config) { c.Embedder.Kind = "openai" }},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
