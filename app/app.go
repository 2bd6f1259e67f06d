// Package app assembles the pipeline components from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/tmc/langchaingo/embeddings"

	"github.com/itish2003/pdfrag/chunker"
	"github.com/itish2003/pdfrag/config"
	"github.com/itish2003/pdfrag/embedding"
	"github.com/itish2003/pdfrag/highlight"
	"github.com/itish2003/pdfrag/llm"
	"github.com/itish2003/pdfrag/ocr"
	"github.com/itish2003/pdfrag/pdfdoc"
	"github.com/itish2003/pdfrag/retrieval"
	"github.com/itish2003/pdfrag/services"
	"github.com/itish2003/pdfrag/vectorstore"
	"github.com/itish2003/pdfrag/vectorstore/chroma"
	"github.com/itish2003/pdfrag/vectorstore/memory"
	"github.com/itish2003/pdfrag/vectorstore/sqlite"
)

// App holds the wired services for one configuration.
type App struct {
	Config    *config.Config
	Store     vectorstore.Store
	Embedder  *embedding.Service
	Indexer   *services.IndexingService
	Retriever *retrieval.Retriever
	RAG       services.RAGService
}

// New builds every component. The generator is only created when
// withGenerator is set, so index-only commands work without an LLM.
func New(ctx context.Context, cfg *config.Config, withGenerator bool) (*App, error) {
	for _, dir := range []string{cfg.Paths.RawDir, cfg.Paths.ProcessedDir, cfg.Paths.IndexDir, cfg.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := pdfdoc.SetLicense(cfg.UnidocKey); err != nil {
		return nil, err
	}

	emb, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := newStore(ctx, cfg, emb.Model())
	if err != nil {
		return nil, err
	}

	var engine services.OCREngine
	if !cfg.OCR.Disabled {
		t := ocr.NewTesseract(cfg.OCR.Command, cfg.OCR.Language)
		if t.Available() {
			engine = t
		} else {
			log.Printf("OCR WARN: %s not found on PATH, scanned pages will have no text", cfg.OCR.Command)
		}
	}
	openSource := func(path string) (services.PageSource, error) { return pdfdoc.Open(path) }
	extractor := services.NewExtractorService(openSource, engine, cfg.OCR.DPI, cfg.PDF.ScannedThreshold)

	indexer := services.NewIndexingService(cfg.Paths, cfg.PDF.Pattern, extractor, chunker.New(newSplitter(cfg)), emb, store)
	retriever := retrieval.New(emb, store)

	a := &App{Config: cfg, Store: store, Embedder: emb, Indexer: indexer, Retriever: retriever}
	if !withGenerator {
		return a, nil
	}

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	files, err := services.NewFileActions(cfg.Paths.OutputDir)
	if err != nil {
		store.Close()
		return nil, err
	}
	a.RAG = services.NewRAGService(cfg.Paths, retriever, gen, highlight.NewLocator(pdfdoc.Opener{}), files, cfg.Retrieval.TopK)
	return a, nil
}

func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

func newSplitter(cfg *config.Config) chunker.Splitter {
	if cfg.Chunker.Type == "recursive" {
		return chunker.NewRecursive(cfg.Chunker.WindowSize, cfg.Chunker.Overlap)
	}
	return chunker.Window{Size: cfg.Chunker.WindowSize, Overlap: cfg.Chunker.Overlap}
}

func newEmbedder(ctx context.Context, cfg *config.Config) (*embedding.Service, error) {
	var (
		client embeddings.EmbedderClient
		model  = cfg.Embedder.Model
	)
	switch cfg.Embedder.Provider {
	case "ollama":
		if model == "" {
			model = embedding.DefaultOllamaModel
		}
		c, err := embedding.NewOllamaClient(cfg.Embedder.BaseURL, model, cfg.EmbedderTimeout())
		if err != nil {
			return nil, err
		}
		client = c
	case "gemini":
		if model == "" {
			model = embedding.DefaultGeminiModel
		}
		c, err := embedding.NewGeminiClient(ctx, cfg.GeminiAPIKey, model)
		if err != nil {
			return nil, err
		}
		client = c
	case "hashing":
		h := embedding.Hashing{Dimension: cfg.Embedder.Dimension}
		if h.Dimension <= 0 {
			h.Dimension = embedding.DefaultHashingDimension
		}
		model = fmt.Sprintf("hashing-%d", h.Dimension)
		client = h
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Embedder.Provider)
	}
	log.Printf("EMBEDDER: using %s/%s", cfg.Embedder.Provider, model)
	return embedding.NewService(client, model, cfg.Embedder.BatchSize)
}

func newStore(ctx context.Context, cfg *config.Config, model string) (vectorstore.Store, error) {
	switch cfg.VectorStore.Type {
	case "sqlite":
		return sqlite.Open(cfg.VectorStore.Path, model)
	case "chroma":
		return chroma.Open(ctx, chroma.Config{URL: cfg.VectorStore.URL, Collection: cfg.VectorStore.Collection})
	case "memory":
		log.Println("STORE WARN: memory vector store does not persist between runs")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown vector store %q", cfg.VectorStore.Type)
}

func newGenerator(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
	switch cfg.Generator.Provider {
	case "ollama":
		return llm.NewOllama(llm.OllamaConfig{
			BaseURL: cfg.Generator.BaseURL,
			Model:   cfg.Generator.Model,
			Timeout: cfg.GeneratorTimeout(),
		}), nil
	case "gemini":
		return llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.Generator.Model, cfg.GeneratorTimeout())
	}
	return nil, errors.New("unknown generator provider " + cfg.Generator.Provider)
}
