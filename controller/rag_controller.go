package controller

import (
	"context"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/itish2003/pdfrag/highlight"
	"github.com/itish2003/pdfrag/models"
	"github.com/itish2003/pdfrag/retrieval"
	"github.com/itish2003/pdfrag/services"
)

// Ingester processes one PDF into the index.
type Ingester interface {
	ProcessPDF(ctx context.Context, pdfPath string) (*models.IngestDocumentResponse, error)
}

// RAGController handles the HTTP requests of the API.
type RAGController struct {
	ragService services.RAGService
	ingester   Ingester
	rawDir     string
}

func NewRAGController(service services.RAGService, ingester Ingester, rawDir string) *RAGController {
	return &RAGController{
		ragService: service,
		ingester:   ingester,
		rawDir:     rawDir,
	}
}

// QueryRAG is the handler for POST /api/v1/query.
func (c *RAGController) QueryRAG(ctx *gin.Context) {
	var req models.QueryTextRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	result, err := c.ragService.Answer(ctx.Request.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrHighlight) && result != nil:
		// The answer stands; the client learns why nothing was annotated.
	case errors.Is(err, retrieval.ErrEmptyQuery):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrDocumentNotFound), errors.Is(err, highlight.ErrInputMissing):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrGeneration):
		log.Printf("SERVICE ERROR: %v", err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate AI response"})
		return
	default:
		log.Printf("SERVICE ERROR: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to answer query"})
		return
	}

	resp := models.QueryRAGResponse{
		RequestID:      result.RequestID,
		Answer:         result.Answer,
		Evidence:       result.Evidence,
		HighlightError: result.HighlightError,
	}
	if result.AnnotatedPDF != "" {
		resp.AnnotatedPDF = filepath.Base(result.AnnotatedPDF)
	}
	ctx.JSON(http.StatusOK, resp)
}

// ListDocuments is the handler for GET /api/v1/documents.
func (c *RAGController) ListDocuments(ctx *gin.Context) {
	response, err := c.ragService.ListDocuments(ctx.Request.Context())
	if err != nil {
		log.Printf("SERVICE ERROR: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve documents"})
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// IngestDocument is the handler for POST /api/v1/documents. The path names
// a PDF inside the raw directory.
func (c *RAGController) IngestDocument(ctx *gin.Context) {
	var req models.IngestDocumentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	name := filepath.Base(req.Path)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "path must name a .pdf file"})
		return
	}

	resp, err := c.ingester.ProcessPDF(ctx.Request.Context(), filepath.Join(c.rawDir, name))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrDocumentNotFound) {
			status = http.StatusNotFound
		}
		if resp == nil {
			resp = &models.IngestDocumentResponse{Document: services.DocumentName(name)}
		}
		resp.Error = err.Error()
		ctx.JSON(status, resp)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// DownloadAnnotated is the handler for GET /api/v1/annotated/:name.
func (c *RAGController) DownloadAnnotated(ctx *gin.Context) {
	name := ctx.Param("name")
	path, err := c.ragService.AnnotatedFile(name)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrDocumentNotFound) {
			status = http.StatusNotFound
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}
	ctx.FileAttachment(path, filepath.Base(path))
}
