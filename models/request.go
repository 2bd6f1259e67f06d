package models

// QueryTextRequest asks a question about one processed document.
type QueryTextRequest struct {
	Document string `json:"document" binding:"required"`
	Query    string `json:"query"`
	TopK     int    `json:"top_k,omitempty"`
}

// IngestDocumentRequest points at a PDF to ingest, chunk and index.
type IngestDocumentRequest struct {
	Path string `json:"path" binding:"required"`
}
