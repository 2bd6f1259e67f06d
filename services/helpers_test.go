package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/itish2003/pdfrag/chunker"
	"github.com/itish2003/pdfrag/config"
	"github.com/itish2003/pdfrag/embedding"
	"github.com/itish2003/pdfrag/highlight"
	"github.com/itish2003/pdfrag/ocr"
	"github.com/itish2003/pdfrag/textnorm"
	"github.com/itish2003/pdfrag/vectorstore/memory"
)

// fakePDF serves as both the ingestion source and the highlight document.
type fakePDF struct {
	pages    []string
	rendered []int
	marks    map[int][]highlight.Rect
	saved    string
}

func (f *fakePDF) NumPages() int { return len(f.pages) }

func (f *fakePDF) PageText(n int) (string, error) { return f.pages[n-1], nil }

func (f *fakePDF) RenderPage(n int, dpi float64, out string) (float64, error) {
	f.rendered = append(f.rendered, n)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return 0, err
	}
	return dpi / 72, os.WriteFile(out, []byte("png"), 0o644)
}

func (f *fakePDF) Search(n int, needle string) ([]highlight.Rect, error) {
	var out []highlight.Rect
	for range textnorm.Fold(f.pages[n-1]).FindAll(needle) {
		out = append(out, highlight.Rect{X0: 72, Y0: 100, X1: 300, Y1: 112})
	}
	return out, nil
}

func (f *fakePDF) Highlight(n int, rects ...highlight.Rect) error {
	if f.marks == nil {
		f.marks = map[int][]highlight.Rect{}
	}
	f.marks[n] = append(f.marks[n], rects...)
	return nil
}

func (f *fakePDF) Save(path string) error {
	f.saved = path
	return os.WriteFile(path, []byte("%PDF-annotated"), 0o644)
}

func (f *fakePDF) Close() error { return nil }

type pdfLibrary map[string]*fakePDF

func (l pdfLibrary) lookup(path string) (*fakePDF, error) {
	if doc, ok := l[filepath.Base(path)]; ok {
		return doc, nil
	}
	return nil, fmt.Errorf("no fake pdf for %s", path)
}

func (l pdfLibrary) source(path string) (PageSource, error) { return l.lookup(path) }

func (l pdfLibrary) Open(path string) (highlight.Document, error) { return l.lookup(path) }

type fakeOCR struct {
	words []ocr.Word
	calls int
}

func (o *fakeOCR) Recognize(context.Context, string) ([]ocr.Word, error) {
	o.calls++
	return o.words, nil
}

type fakeGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.answer, g.err
}

func (g *fakeGenerator) Model() string { return "fake" }

type env struct {
	paths    config.Paths
	library  pdfLibrary
	ocr      *fakeOCR
	store    *memory.Store
	embedder *embedding.Service
	indexer  *IndexingService
}

func warrantyManual() *fakePDF {
	return &fakePDF{pages: []string{
		"Welcome to the product manual. Read all instructions before use.",
		"The warranty period is 24 months.",
		"Contact support by email for any questions about your device.",
	}}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	paths := config.Paths{
		DataDir:      root,
		RawDir:       filepath.Join(root, "raw_pdfs"),
		ProcessedDir: filepath.Join(root, "processed"),
		IndexDir:     filepath.Join(root, "index"),
		OutputDir:    filepath.Join(root, "outputs"),
	}
	require.NoError(t, os.MkdirAll(paths.RawDir, 0o755))

	e := &env{
		paths:   paths,
		library: pdfLibrary{"manual.pdf": warrantyManual()},
		ocr:     &fakeOCR{},
		store:   memory.New(),
	}
	var err error
	e.embedder, err = embedding.NewService(embedding.Hashing{Dimension: 256}, "hashing", 2)
	require.NoError(t, err)

	extractor := NewExtractorService(e.library.source, e.ocr, 300, 20)
	e.indexer = NewIndexingService(paths, "", extractor, chunker.New(nil), e.embedder, e.store)
	return e
}

func (e *env) addRawPDF(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.paths.RawDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
