package services

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrGeneration       = errors.New("answer generation failed")
	ErrHighlight        = errors.New("evidence highlighting failed")
	ErrPartialIndex     = errors.New("index build incomplete")
)

// PartialIndexError reports how far an index build got before a batch
// failed. Records upserted before the failure stay in the index.
type PartialIndexError struct {
	DocumentID string
	Upserted   int
	Total      int
	Err        error
}

func (e *PartialIndexError) Error() string {
	return fmt.Sprintf("indexing %s stopped after %d/%d records: %v", e.DocumentID, e.Upserted, e.Total, e.Err)
}

func (e *PartialIndexError) Unwrap() []error {
	return []error{ErrPartialIndex, e.Err}
}
