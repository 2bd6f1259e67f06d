package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/pdfrag/highlight"
	"github.com/itish2003/pdfrag/models"
	"github.com/itish2003/pdfrag/retrieval"
	"github.com/itish2003/pdfrag/services"
)

type stubRAG struct {
	result    *services.QueryResult
	err       error
	docs      *models.GetAllDocumentsResponse
	annotated map[string]string
	got       []models.QueryTextRequest
}

func (s *stubRAG) Answer(_ context.Context, req models.QueryTextRequest) (*services.QueryResult, error) {
	s.got = append(s.got, req)
	return s.result, s.err
}

func (s *stubRAG) ListDocuments(context.Context) (*models.GetAllDocumentsResponse, error) {
	return s.docs, nil
}

func (s *stubRAG) AnnotatedFile(name string) (string, error) {
	if p, ok := s.annotated[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %s", services.ErrDocumentNotFound, name)
}

type stubIngester struct {
	paths []string
	err   error
}

func (s *stubIngester) ProcessPDF(_ context.Context, path string) (*models.IngestDocumentResponse, error) {
	s.paths = append(s.paths, path)
	if s.err != nil {
		return nil, s.err
	}
	return &models.IngestDocumentResponse{Document: services.DocumentName(path), Pages: 2, Chunks: 3, Indexed: 3}, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestQueryRAG(t *testing.T) {
	d := 0.12
	rag := &stubRAG{result: &services.QueryResult{
		RequestID:    "req-1",
		Answer:       "24 months [Source 1]",
		Evidence:     []models.Evidence{{Snippet: "The warranty period is 24 months.", Page: 2, Distance: &d}},
		AnnotatedPDF: "/data/outputs/annotated_manual_1.pdf",
	}}
	r := NewRouter(NewRAGController(rag, &stubIngester{}, "/data/raw"))

	w := serve(t, r, http.MethodPost, "/api/v1/query", `{"document":"manual","query":"warranty?","top_k":3}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.QueryRAGResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, "annotated_manual_1.pdf", resp.AnnotatedPDF)
	require.Len(t, resp.Evidence, 1)
	assert.Equal(t, 2, resp.Evidence[0].Page)
	assert.Equal(t, []models.QueryTextRequest{{Document: "manual", Query: "warranty?", TopK: 3}}, rag.got)
}

func TestQueryRAGErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"missing document", `{"query":"x"}`, nil, http.StatusBadRequest},
		{"malformed body", `{`, nil, http.StatusBadRequest},
		{"empty query", `{"document":"manual","query":""}`, retrieval.ErrEmptyQuery, http.StatusBadRequest},
		{"unknown document", `{"document":"nope","query":"x"}`, fmt.Errorf("%w: nope", services.ErrDocumentNotFound), http.StatusNotFound},
		{"pages missing", `{"document":"half","query":"x"}`, fmt.Errorf("%w: pages.jsonl", highlight.ErrInputMissing), http.StatusNotFound},
		{"generation", `{"document":"manual","query":"x"}`, fmt.Errorf("%w: timeout", services.ErrGeneration), http.StatusBadGateway},
		{"other", `{"document":"manual","query":"x"}`, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(NewRAGController(&stubRAG{err: tt.err}, &stubIngester{}, "/data/raw"))
			w := serve(t, r, http.MethodPost, "/api/v1/query", tt.body)
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestQueryRAGHighlightFailureStillAnswers(t *testing.T) {
	rag := &stubRAG{
		result: &services.QueryResult{RequestID: "req-2", Answer: "24 months", HighlightError: "pdf is encrypted"},
		err:    fmt.Errorf("%w: pdf is encrypted", services.ErrHighlight),
	}
	r := NewRouter(NewRAGController(rag, &stubIngester{}, "/data/raw"))

	w := serve(t, r, http.MethodPost, "/api/v1/query", `{"document":"manual","query":"warranty"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.QueryRAGResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "24 months", resp.Answer)
	assert.Equal(t, "pdf is encrypted", resp.HighlightError)
	assert.Empty(t, resp.AnnotatedPDF)
}

func TestIngestDocument(t *testing.T) {
	ing := &stubIngester{}
	r := NewRouter(NewRAGController(&stubRAG{}, ing, "/data/raw"))

	w := serve(t, r, http.MethodPost, "/api/v1/documents", `{"path":"../../etc/manual.pdf"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{filepath.Join("/data/raw", "manual.pdf")}, ing.paths)
	assert.Contains(t, w.Body.String(), `"indexed":3`)

	w = serve(t, r, http.MethodPost, "/api/v1/documents", `{"path":"notes.txt"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ing.err = fmt.Errorf("%w: gone.pdf", services.ErrDocumentNotFound)
	w = serve(t, r, http.MethodPost, "/api/v1/documents", `{"path":"gone.pdf"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"document":"gone"`)
}

func TestListDocumentsAndDownload(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "annotated_manual_1.pdf")
	require.NoError(t, os.WriteFile(out, []byte("%PDF-1.7"), 0o644))
	rag := &stubRAG{
		docs:      &models.GetAllDocumentsResponse{Count: 1, Documents: []models.DocumentSummary{{Name: "manual", Pages: 3}}},
		annotated: map[string]string{"annotated_manual_1.pdf": out},
	}
	r := NewRouter(NewRAGController(rag, &stubIngester{}, dir))

	w := serve(t, r, http.MethodGet, "/api/v1/documents", "")
	require.Equal(t, http.StatusOK, w.Code)
	var docs models.GetAllDocumentsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	assert.Equal(t, *rag.docs, docs)

	w = serve(t, r, http.MethodGet, "/api/v1/annotated/annotated_manual_1.pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.7", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "annotated_manual_1.pdf")

	w = serve(t, r, http.MethodGet, "/api/v1/annotated/other.pdf", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndPreflight(t *testing.T) {
	r := NewRouter(NewRAGController(&stubRAG{}, &stubIngester{}, "/data/raw"))

	w := serve(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = serve(t, r, http.MethodOptions, "/api/v1/query", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
