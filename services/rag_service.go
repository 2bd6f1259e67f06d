package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/itish2003/pdfrag/artifact"
	"github.com/itish2003/pdfrag/config"
	"github.com/itish2003/pdfrag/highlight"
	"github.com/itish2003/pdfrag/llm"
	"github.com/itish2003/pdfrag/models"
	"github.com/itish2003/pdfrag/retrieval"
	"github.com/itish2003/pdfrag/vectorstore"
)

// RAGService answers questions about processed documents.
type RAGService interface {
	Answer(ctx context.Context, req models.QueryTextRequest) (*QueryResult, error)
	ListDocuments(ctx context.Context) (*models.GetAllDocumentsResponse, error)
	AnnotatedFile(name string) (string, error)
}

type Retriever interface {
	RetrieveDocument(ctx context.Context, documentID, query string, topK int) ([]vectorstore.Match, error)
}

type EvidenceLocator interface {
	Locate(pdfPath, pagesPath string, evidence []models.Evidence, outPath string) (*highlight.Report, error)
}

// QueryResult is the outcome of one question. When highlighting fails the
// answer and evidence are still set and HighlightError says why.
type QueryResult struct {
	RequestID      string            `json:"request_id"`
	Document       string            `json:"document"`
	Query          string            `json:"query"`
	Answer         string            `json:"answer"`
	Evidence       []models.Evidence `json:"evidence"`
	AnnotatedPDF   string            `json:"annotated_pdf,omitempty"`
	HighlightError string            `json:"highlight_error,omitempty"`
	Report         *highlight.Report `json:"report,omitempty"`
}

type ragServiceImpl struct {
	paths       config.Paths
	retriever   Retriever
	generator   llm.Generator
	locator     EvidenceLocator
	files       *FileActions
	defaultTopK int
	now         func() time.Time
}

func NewRAGService(paths config.Paths, retriever Retriever, generator llm.Generator, locator EvidenceLocator, files *FileActions, defaultTopK int) RAGService {
	if defaultTopK <= 0 {
		defaultTopK = retrieval.DefaultTopK
	}
	return &ragServiceImpl{
		paths:       paths,
		retriever:   retriever,
		generator:   generator,
		locator:     locator,
		files:       files,
		defaultTopK: defaultTopK,
		now:         time.Now,
	}
}

type resolvedDocument struct {
	Name      string
	Folder    string
	PagesPath string
	PDFPath   string
}

// Answer implements RAGService. Document and query problems are reported
// before anything is retrieved.
func (r *ragServiceImpl) Answer(ctx context.Context, req models.QueryTextRequest) (*QueryResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, retrieval.ErrEmptyQuery
	}
	doc, err := r.resolveDocument(req.Document)
	if err != nil {
		return nil, err
	}
	topK := req.TopK
	if topK <= 0 {
		topK = r.defaultTopK
	}

	result := &QueryResult{RequestID: uuid.New().String(), Document: doc.Name, Query: query}
	log.Printf("SERVICE: [%s] Querying %s with: '%s' (top_k=%d)", result.RequestID, doc.Name, query, topK)

	hits, err := r.retriever.RetrieveDocument(ctx, doc.Name, query, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve chunks: %w", err)
	}

	answer, err := r.generator.Generate(ctx, BuildPrompt(query, hits))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	result.Answer = answer

	result.Evidence = make([]models.Evidence, 0, len(hits))
	for _, h := range hits {
		result.Evidence = append(result.Evidence, models.NewEvidence(h.Text, h.Metadata.Page, h.Distance))
	}

	out := r.files.AnnotatedPath(doc.Name, r.now())
	report, err := r.locator.Locate(doc.PDFPath, doc.PagesPath, result.Evidence, out)
	if err != nil {
		log.Printf("SERVICE WARN: [%s] highlighting failed: %v", result.RequestID, err)
		result.HighlightError = err.Error()
		return result, fmt.Errorf("%w: %w", ErrHighlight, err)
	}
	result.AnnotatedPDF = out
	result.Report = report
	log.Printf("SERVICE: [%s] answered with %d evidence items, annotated %s", result.RequestID, len(result.Evidence), out)
	return result, nil
}

// resolveDocument finds the processed folder and original PDF of a
// document. The PDF is looked up at its recorded path, then as the first
// PDF inside the folder, then as raw_dir/<name>.pdf.
func (r *ragServiceImpl) resolveDocument(name string) (*resolvedDocument, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: no document given", ErrDocumentNotFound)
	}
	folder := name
	if !filepath.IsAbs(folder) {
		folder = filepath.Join(r.paths.ProcessedDir, filepath.Base(name))
	}
	doc := &resolvedDocument{
		Name:      filepath.Base(folder),
		Folder:    folder,
		PagesPath: filepath.Join(folder, artifact.PagesFile),
	}

	if _, err := os.Stat(doc.PagesPath); err != nil {
		if _, derr := os.Stat(folder); derr != nil {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, doc.Name)
		}
		return nil, fmt.Errorf("%w: %s", highlight.ErrInputMissing, doc.PagesPath)
	}
	first, err := artifact.FirstPage(doc.PagesPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", highlight.ErrInputMissing, err)
	}

	if first.PDFPath != "" && fileExists(first.PDFPath) {
		doc.PDFPath = first.PDFPath
		return doc, nil
	}
	if cands, _ := filepath.Glob(filepath.Join(folder, "*.pdf")); len(cands) > 0 {
		sort.Strings(cands)
		doc.PDFPath = cands[0]
		return doc, nil
	}
	if raw := filepath.Join(r.paths.RawDir, doc.Name+".pdf"); fileExists(raw) {
		doc.PDFPath = raw
		return doc, nil
	}
	return nil, fmt.Errorf("%w: cannot find original PDF for %s", ErrDocumentNotFound, folder)
}

// ListDocuments implements RAGService.
func (r *ragServiceImpl) ListDocuments(_ context.Context) (*models.GetAllDocumentsResponse, error) {
	entries, err := os.ReadDir(r.paths.ProcessedDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &models.GetAllDocumentsResponse{Documents: []models.DocumentSummary{}}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", r.paths.ProcessedDir, err)
	}
	docs := []models.DocumentSummary{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(r.paths.ProcessedDir, e.Name())
		first, err := artifact.FirstPage(filepath.Join(dir, artifact.PagesFile))
		if err != nil {
			continue
		}
		docs = append(docs, models.DocumentSummary{
			Name:      e.Name(),
			PDFPath:   first.PDFPath,
			Pages:     first.NPages,
			HasChunks: fileExists(filepath.Join(dir, artifact.ChunksFile)),
		})
	}
	log.Printf("SERVICE: Found %d processed documents", len(docs))
	return &models.GetAllDocumentsResponse{Count: len(docs), Documents: docs}, nil
}

// AnnotatedFile implements RAGService.
func (r *ragServiceImpl) AnnotatedFile(name string) (string, error) {
	return r.files.ResolveAnnotated(name)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
