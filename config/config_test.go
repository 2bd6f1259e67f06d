package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PDFRAG_DATA_DIR", "OLLAMA_HOST", "CHROMA_URL", "GEMINI_API_KEY", "UNIDOC_LICENSE_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Chunker.WindowSize)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Equal(t, 64, cfg.Embedder.BatchSize)
	assert.Equal(t, "sqlite", cfg.VectorStore.Type)
	assert.Equal(t, 180*time.Second, cfg.GeneratorTimeout())
	assert.True(t, filepath.IsAbs(cfg.Paths.RawDir))
	assert.Equal(t, "raw_pdfs", filepath.Base(cfg.Paths.RawDir))
	assert.Equal(t, filepath.Join(cfg.Paths.IndexDir, "vectors.db"), cfg.VectorStore.Path)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("PDFRAG_DATA_DIR", filepath.Join(dir, "store"))
	t.Setenv("OLLAMA_HOST", "http://ollama:11434")
	t.Setenv("CHROMA_URL", "http://chroma:8000")

	path := filepath.Join(dir, "pdfrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chunker:
  type: recursive
  window_size: 500
  overlap: 50
embedder:
  provider: hashing
  dimension: 128
vector_store:
  type: chroma
paths:
  output_dir: /tmp/pdfrag-out
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "recursive", cfg.Chunker.Type)
	assert.Equal(t, 500, cfg.Chunker.WindowSize)
	assert.Equal(t, "hashing", cfg.Embedder.Provider)
	assert.Equal(t, "http://ollama:11434", cfg.Generator.BaseURL)
	assert.Equal(t, "http://chroma:8000", cfg.VectorStore.URL)
	assert.Equal(t, filepath.Join(dir, "store", "processed"), cfg.Paths.ProcessedDir)
	assert.Equal(t, "/tmp/pdfrag-out", cfg.Paths.OutputDir)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative overlap", func(c *Config) { c.Chunker.Overlap = -1 }},
		{"zero window", func(c *Config) { c.Chunker.WindowSize = 0 }},
		{"unknown chunker", func(c *Config) { c.Chunker.Type = "sentences" }},
		{"unknown embedder", func(c *Config) { c.Embedder.Provider = "openai" }},
		{"gemini without key", func(c *Config) { c.Generator.Provider = "gemini" }},
		{"unknown store", func(c *Config) { c.VectorStore.Type = "qdrant" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "pdfrag.yaml")
	cfg := Default()
	cfg.Retrieval.TopK = 9
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Retrieval.TopK)
}
