package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/itish2003/pdfrag/artifact"
	"github.com/itish2003/pdfrag/chunker"
	"github.com/itish2003/pdfrag/config"
	"github.com/itish2003/pdfrag/models"
	"github.com/itish2003/pdfrag/vectorstore"
)

const sourceStateFile = "source.json"

// DocumentEmbedder embeds chunk texts for storage.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	BatchSize() int
}

// Progress receives indexing progress. Implementations must tolerate
// Start being called once per document.
type Progress interface {
	Start(label string, total int)
	Add(n int)
	Finish()
}

type noProgress struct{}

func (noProgress) Start(string, int) {}
func (noProgress) Add(int)           {}
func (noProgress) Finish()           {}

// SourceState records which PDF produced a processed folder.
type SourceState struct {
	Path string `json:"path"`
	Hash string `json:"sha256"`
}

// ScanSummary reports what a raw directory scan did.
type ScanSummary struct {
	Indexed   []string `json:"indexed"`
	Unchanged []string `json:"unchanged"`
	Removed   []string `json:"removed"`
	Failed    []string `json:"failed"`
}

// IndexingService runs ingest -> chunk -> index for PDFs and keeps the
// index in sync with the raw directory.
type IndexingService struct {
	paths     config.Paths
	pattern   string
	extractor *ExtractorService
	chunker   *chunker.Chunker
	embedder  DocumentEmbedder
	store     vectorstore.Store
	progress  Progress
}

func NewIndexingService(paths config.Paths, pattern string, extractor *ExtractorService, c *chunker.Chunker, embedder DocumentEmbedder, store vectorstore.Store) *IndexingService {
	if pattern == "" {
		pattern = "**/*.{pdf,PDF}"
	}
	return &IndexingService{
		paths:     paths,
		pattern:   pattern,
		extractor: extractor,
		chunker:   c,
		embedder:  embedder,
		store:     store,
		progress:  noProgress{},
	}
}

func (s *IndexingService) SetProgress(p Progress) {
	if p == nil {
		p = noProgress{}
	}
	s.progress = p
}

// DocumentName is the processed folder name and document id of a PDF.
func DocumentName(pdfPath string) string {
	base := filepath.Base(pdfPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ProcessPDF ingests, chunks and indexes one PDF.
func (s *IndexingService) ProcessPDF(ctx context.Context, pdfPath string) (*models.IngestDocumentResponse, error) {
	name := DocumentName(pdfPath)
	outDir := filepath.Join(s.paths.ProcessedDir, name)
	resp := &models.IngestDocumentResponse{Document: name}

	hash, err := calculateFileHash(pdfPath)
	if err != nil {
		return resp, fmt.Errorf("%w: %s: %v", ErrDocumentNotFound, pdfPath, err)
	}

	log.Printf("INDEXER: Extracting %s", pdfPath)
	pages, _, err := s.extractor.ExtractPDF(ctx, pdfPath, outDir)
	if err != nil {
		return resp, err
	}
	resp.Pages = len(pages)

	chunks, err := s.chunker.Chunk(pages)
	if err != nil {
		return resp, err
	}
	resp.Chunks = len(chunks)
	if err := artifact.WriteChunks(filepath.Join(outDir, artifact.ChunksFile), chunks); err != nil {
		return resp, err
	}

	resp.Indexed, err = s.IndexDocument(ctx, name, chunks)
	if err != nil {
		return resp, err
	}

	abs, _ := filepath.Abs(pdfPath)
	if err := writeSourceState(outDir, SourceState{Path: abs, Hash: hash}); err != nil {
		log.Printf("INDEXER WARN: could not record source state for %s: %v", name, err)
	}
	log.Printf("INDEXER: %s done: %d pages, %d chunks, %d records", name, resp.Pages, resp.Chunks, resp.Indexed)
	return resp, nil
}

// IndexDocument replaces the records of documentID with chunks. Chunks are
// embedded and upserted one batch at a time over the existing ids; on
// failure the returned error is a *PartialIndexError and the previous
// records not yet overwritten stay in place. Records beyond the new chunk
// count are removed only after every batch succeeded.
func (s *IndexingService) IndexDocument(ctx context.Context, documentID string, chunks []models.Chunk) (int, error) {
	if len(chunks) == 0 {
		log.Printf("INDEXER: %s has no chunks to index", documentID)
		if err := s.store.DeleteStale(ctx, documentID, 0); err != nil {
			return 0, fmt.Errorf("failed to clear old records of %s: %w", documentID, err)
		}
		return 0, nil
	}

	batch := max(s.embedder.BatchSize(), 1)
	s.progress.Start(documentID, len(chunks))
	defer s.progress.Finish()

	upserted := 0
	for start := 0; start < len(chunks); start += batch {
		end := min(start+batch, len(chunks))
		part := chunks[start:end]
		texts := make([]string, len(part))
		for i, ch := range part {
			texts[i] = ch.Text
		}

		vecs, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return upserted, &PartialIndexError{DocumentID: documentID, Upserted: upserted, Total: len(chunks), Err: err}
		}
		records := make([]vectorstore.Record, len(part))
		for i, ch := range part {
			records[i] = vectorstore.Record{
				ID:        vectorstore.RecordID(documentID, start+i),
				Text:      ch.Text,
				Embedding: vecs[i],
				Metadata: vectorstore.Metadata{
					Page:       ch.PageStart,
					ChunkID:    ch.ChunkID,
					PDFPath:    ch.PDFPath,
					DocumentID: documentID,
					Ordinal:    start + i,
				},
			}
		}
		if err := s.store.Upsert(ctx, records); err != nil {
			return upserted, &PartialIndexError{DocumentID: documentID, Upserted: upserted, Total: len(chunks), Err: err}
		}
		upserted += len(records)
		s.progress.Add(len(records))
	}
	if err := s.store.DeleteStale(ctx, documentID, len(chunks)); err != nil {
		return upserted, fmt.Errorf("failed to remove stale records of %s: %w", documentID, err)
	}
	return upserted, nil
}

// IndexChunksFile indexes an existing chunks.jsonl under documentID.
func (s *IndexingService) IndexChunksFile(ctx context.Context, documentID, chunksPath string) (int, error) {
	chunks, diag, err := artifact.ReadChunks(chunksPath)
	if err != nil {
		return 0, err
	}
	if diag.SkippedCount() > 0 {
		log.Printf("INDEXER WARN: skipped %d malformed lines in %s", diag.SkippedCount(), chunksPath)
	}
	return s.IndexDocument(ctx, documentID, chunks)
}

// ReindexProcessed rebuilds the index from every processed folder, chunking
// folders that only have pages.jsonl.
func (s *IndexingService) ReindexProcessed(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.paths.ProcessedDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", s.paths.ProcessedDir, err)
	}
	total := 0
	var errs []error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(s.paths.ProcessedDir, e.Name())
		chunksPath := filepath.Join(dir, artifact.ChunksFile)
		if _, err := os.Stat(chunksPath); err != nil {
			pages, _, perr := artifact.ReadPages(filepath.Join(dir, artifact.PagesFile))
			if perr != nil {
				continue
			}
			chunks, cerr := s.chunker.Chunk(pages)
			if cerr != nil {
				errs = append(errs, fmt.Errorf("%s: %w", e.Name(), cerr))
				continue
			}
			if werr := artifact.WriteChunks(chunksPath, chunks); werr != nil {
				errs = append(errs, fmt.Errorf("%s: %w", e.Name(), werr))
				continue
			}
		}
		log.Printf("INDEXER: Indexing processed folder %s", e.Name())
		n, err := s.IndexChunksFile(ctx, e.Name(), chunksPath)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
		}
	}
	return total, errors.Join(errs...)
}

// ScanAndIndexDirectory syncs the index with the raw directory: new or
// changed PDFs are processed, unchanged ones skipped, and documents whose
// raw PDF disappeared are removed from the index.
func (s *IndexingService) ScanAndIndexDirectory(ctx context.Context) (*ScanSummary, error) {
	log.Printf("INDEXER: Starting directory scan for: %s", s.paths.RawDir)
	summary := &ScanSummary{}

	pdfs, err := s.discover()
	if err != nil {
		return summary, err
	}
	seen := make(map[string]bool, len(pdfs))
	for _, path := range pdfs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		name := DocumentName(path)
		seen[name] = true

		changed, err := s.sourceChanged(path)
		if err != nil {
			log.Printf("INDEXER WARN: Could not hash file %s: %v", path, err)
			summary.Failed = append(summary.Failed, name)
			continue
		}
		if !changed {
			summary.Unchanged = append(summary.Unchanged, name)
			continue
		}
		log.Printf("INDEXER: Indexing new/modified file: %s", path)
		if _, err := s.ProcessPDF(ctx, path); err != nil {
			log.Printf("INDEXER ERROR: Failed to process file %s: %v", path, err)
			summary.Failed = append(summary.Failed, name)
			continue
		}
		summary.Indexed = append(summary.Indexed, name)
	}

	entries, err := os.ReadDir(s.paths.ProcessedDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return summary, fmt.Errorf("failed to read %s: %w", s.paths.ProcessedDir, err)
	}
	for _, e := range entries {
		if !e.IsDir() || seen[e.Name()] {
			continue
		}
		state, err := readSourceState(filepath.Join(s.paths.ProcessedDir, e.Name()))
		if err != nil || !s.inRawDir(state.Path) {
			continue
		}
		if _, err := os.Stat(state.Path); err == nil {
			continue
		}
		log.Printf("INDEXER: File deleted: %s. Removing from index...", state.Path)
		if err := s.store.DeleteDocument(ctx, e.Name()); err != nil {
			log.Printf("INDEXER ERROR: Failed to delete records for %s: %v", e.Name(), err)
			continue
		}
		summary.Removed = append(summary.Removed, e.Name())
	}
	log.Printf("INDEXER: Directory scan finished: %d indexed, %d unchanged, %d removed, %d failed",
		len(summary.Indexed), len(summary.Unchanged), len(summary.Removed), len(summary.Failed))
	return summary, nil
}

// WatchDirectory indexes PDFs as they appear or change in the raw
// directory until ctx is cancelled.
func (s *IndexingService) WatchDirectory(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := os.MkdirAll(s.paths.RawDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.paths.RawDir, err)
	}
	if err := watcher.Add(s.paths.RawDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.paths.RawDir, err)
	}
	log.Printf("WATCHER: Watching directory: %s", s.paths.RawDir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isPDF(event.Name) {
				continue
			}
			log.Printf("WATCHER EVENT: %s", event)
			s.handleEvent(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("WATCHER ERROR: %v", err)
		case <-ctx.Done():
			log.Println("WATCHER: Context cancelled, shutting down watcher.")
			return nil
		}
	}
}

func (s *IndexingService) handleEvent(ctx context.Context, event fsnotify.Event) {
	name := DocumentName(event.Name)
	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		changed, err := s.sourceChanged(event.Name)
		if err != nil {
			log.Printf("WATCHER WARN: Could not hash file %s: %v", event.Name, err)
			return
		}
		if !changed {
			return
		}
		log.Printf("WATCHER: File modified/created: %s. Re-indexing...", event.Name)
		if _, err := s.ProcessPDF(ctx, event.Name); err != nil {
			log.Printf("WATCHER ERROR: Failed to process file %s: %v", event.Name, err)
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		log.Printf("WATCHER: File removed/renamed: %s. Removing from index...", event.Name)
		if err := s.store.DeleteDocument(ctx, name); err != nil {
			log.Printf("WATCHER ERROR: Failed to delete records for %s: %v", name, err)
		}
	}
}

func (s *IndexingService) discover() ([]string, error) {
	if _, err := os.Stat(s.paths.RawDir); errors.Is(err, os.ErrNotExist) {
		log.Printf("INDEXER: raw directory %s does not exist", s.paths.RawDir)
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(s.paths.RawDir), s.pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to match %q in %s: %w", s.pattern, s.paths.RawDir, err)
	}
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(s.paths.RawDir, filepath.FromSlash(m)))
	}
	return paths, nil
}

// sourceChanged reports whether pdfPath differs from what produced its
// processed folder.
func (s *IndexingService) sourceChanged(pdfPath string) (bool, error) {
	hash, err := calculateFileHash(pdfPath)
	if err != nil {
		return false, err
	}
	state, err := readSourceState(filepath.Join(s.paths.ProcessedDir, DocumentName(pdfPath)))
	if err != nil {
		return true, nil
	}
	return state.Hash != hash, nil
}

func (s *IndexingService) inRawDir(path string) bool {
	rel, err := filepath.Rel(s.paths.RawDir, path)
	return err == nil && !strings.HasPrefix(rel, "..")
}

func readSourceState(dir string) (SourceState, error) {
	var st SourceState
	data, err := os.ReadFile(filepath.Join(dir, sourceStateFile))
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}

func writeSourceState(dir string, st SourceState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, sourceStateFile), data, 0o644)
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func calculateFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
