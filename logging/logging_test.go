package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Format = "json"
	cfg.Level = "debug"
	logger, err := NewWithWriter(cfg, &buf)
	require.NoError(t, err)

	logger.Debug("indexed", zap.String("collection", "notes"), zap.Int("count", 3))
	require.NoError(t, logger.Sync())

	entry := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "indexed", entry["message"])
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "notes", entry["collection"])
	assert.EqualValues(t, 3, entry["count"])
}

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(Default(), &buf)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithWriter_File(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.File = filepath.Join(t.TempDir(), "kb.log")
	logger, err := NewWithWriter(cfg, &buf)
	require.NoError(t, err)
	logger.Warn("written to file")
	_ = logger.Sync()

	data, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"written to file"`)
}

func TestNewWithWriter_Invalid(t *testing.T) {
	_, err := NewWithWriter(Config{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
	_, err = NewWithWriter(Config{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}
