package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/pdfrag/artifact"
	"github.com/itish2003/pdfrag/models"
	"github.com/itish2003/pdfrag/retrieval"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PDFRAG_DATA_DIR", dir)
	path := filepath.Join(dir, "pdfrag.yaml")
	yaml := `
embedder:
  provider: hashing
  dimension: 64
vector_store:
  type: memory
ocr:
  disabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "ingest", "index", "watch", "ask", "documents"} {
		assert.True(t, names[want], want)
	}
}

func TestDocumentsCommand(t *testing.T) {
	cfgPath, dir := writeConfig(t)

	out, err := run(t, "documents", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No processed documents found")

	pages := []models.Page{{PDFPath: "/pdfs/manual.pdf", Page: 1, NPages: 2, Text: "one"}}
	require.NoError(t, artifact.WritePages(filepath.Join(dir, "processed", "manual", artifact.PagesFile), pages))

	out, err = run(t, "documents", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "manual  (2 pages, not chunked)")
	assert.Contains(t, out, "Total: 1 documents")
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	cfgPath, dir := writeConfig(t)
	pages := []models.Page{{PDFPath: "/pdfs/manual.pdf", Page: 1, NPages: 1, Text: "one"}}
	require.NoError(t, artifact.WritePages(filepath.Join(dir, "processed", "manual", artifact.PagesFile), pages))

	_, err := run(t, "ask", "manual", "   ", "--config", cfgPath)
	assert.ErrorIs(t, err, retrieval.ErrEmptyQuery)
}

func TestIngestMissingFile(t *testing.T) {
	cfgPath, dir := writeConfig(t)

	out, err := run(t, "ingest", filepath.Join(dir, "raw_pdfs", "missing.pdf"), "--config", cfgPath)
	assert.Error(t, err)
	assert.Contains(t, out, "missing.pdf")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 10))
	assert.Equal(t, "abc...", preview("abcdef", 3))
}
