package models

// Chunk is a retrievable span of page text, one line of chunks.jsonl.
type Chunk struct {
	ChunkID   string `json:"chunk_id"`
	Text      string `json:"text"`
	PDFPath   string `json:"pdf_path"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
	IsScanned bool   `json:"is_scanned"`
}
