// Package vectorstore defines the chunk index used for retrieval.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Metadata travels with every stored chunk.
type Metadata struct {
	Page       int    `json:"page"`
	ChunkID    string `json:"chunk_id"`
	PDFPath    string `json:"pdf_path"`
	DocumentID string `json:"document_id"`
	// Ordinal is the chunk's position in its document; RecordID derives from it.
	Ordinal int `json:"ordinal"`
}

// Record is one indexed chunk.
type Record struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  Metadata
}

// Match is a query hit. Distance is cosine distance, lower is closer.
type Match struct {
	ID       string
	Text     string
	Metadata Metadata
	Distance float64
}

// Store is a vector index keyed by record id.
type Store interface {
	// Upsert inserts records, replacing any record with the same id.
	Upsert(ctx context.Context, records []Record) error
	// Query returns at most topK matches by ascending distance, ties broken by id.
	Query(ctx context.Context, embedding []float32, topK int) ([]Match, error)
	// QueryDocument is Query restricted to one document; an empty
	// documentID searches every document.
	QueryDocument(ctx context.Context, documentID string, embedding []float32, topK int) ([]Match, error)
	Count(ctx context.Context) (int, error)
	DeleteDocument(ctx context.Context, documentID string) error
	// DeleteStale removes the records of documentID whose ordinal is keep or
	// higher, left over from a longer earlier version of the document.
	DeleteStale(ctx context.Context, documentID string, keep int) error
	Close() error
}

// RecordID is the id of the ordinal-th chunk of a document.
func RecordID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s_%d", documentID, ordinal)
}

// CosineDistance returns 1 - a.b for unit vectors a and b.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1 - dot, nil
}

// Rank sorts matches by distance then id and keeps the first topK.
func Rank(matches []Match, topK int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	if topK >= 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
