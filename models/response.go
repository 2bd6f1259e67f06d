package models

// IngestDocumentResponse reports the outcome of ingesting one PDF.
type IngestDocumentResponse struct {
	Document string `json:"document"`
	Pages    int    `json:"pages"`
	Chunks   int    `json:"chunks"`
	Indexed  int    `json:"indexed"`
	Error    string `json:"error,omitempty"`
}

// QueryRAGResponse is the HTTP shape of a QueryResult.
type QueryRAGResponse struct {
	RequestID      string     `json:"request_id"`
	Answer         string     `json:"answer"`
	Evidence       []Evidence `json:"evidence"`
	AnnotatedPDF   string     `json:"annotated_pdf,omitempty"`
	HighlightError string     `json:"highlight_error,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// DocumentSummary describes one processed document folder.
type DocumentSummary struct {
	Name      string `json:"name"`
	PDFPath   string `json:"pdf_path,omitempty"`
	Pages     int    `json:"pages"`
	HasChunks bool   `json:"has_chunks"`
}

// GetAllDocumentsResponse is the response of GET /api/v1/documents.
type GetAllDocumentsResponse struct {
	Count     int               `json:"count"`
	Documents []DocumentSummary `json:"documents"`
}
