// Package retrieval ranks indexed chunks against a natural-language query.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/itish2003/pdfrag/vectorstore"
)

const DefaultTopK = 5

var ErrEmptyQuery = errors.New("query is empty")

// QueryEmbedder must be the same embedder used when indexing.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Retriever struct {
	embedder QueryEmbedder
	store    vectorstore.Store
}

func New(embedder QueryEmbedder, store vectorstore.Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns up to topK matches, most similar first. topK is clamped
// to [1, number of indexed records].
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]vectorstore.Match, error) {
	return r.RetrieveDocument(ctx, "", query, topK)
}

// RetrieveDocument is Retrieve restricted to the chunks of one document.
func (r *Retriever) RetrieveDocument(ctx context.Context, documentID, query string, topK int) ([]vectorstore.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	count, err := r.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count index: %w", err)
	}
	if count == 0 {
		log.Printf("RETRIEVER: index is empty")
		return nil, nil
	}
	topK = min(max(topK, 1), count)

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	matches, err := r.store.QueryDocument(ctx, documentID, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	log.Printf("RETRIEVER: %d matches for top_k=%d", len(matches), topK)
	return matches, nil
}
