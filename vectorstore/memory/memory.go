// Package memory is an in-process vector store with brute-force search.
package memory

import (
	"context"
	"sync"

	"github.com/itish2003/pdfrag/vectorstore"
)

type Store struct {
	mu      sync.RWMutex
	records map[string]vectorstore.Record
}

func New() *Store {
	return &Store{records: make(map[string]vectorstore.Record)}
}

func (s *Store) Upsert(_ context.Context, records []vectorstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		emb := make([]float32, len(r.Embedding))
		copy(emb, r.Embedding)
		r.Embedding = emb
		s.records[r.ID] = r
	}
	return nil
}

func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]vectorstore.Match, error) {
	return s.QueryDocument(ctx, "", embedding, topK)
}

// QueryDocument skips records whose dimension differs from the query.
func (s *Store) QueryDocument(_ context.Context, documentID string, embedding []float32, topK int) ([]vectorstore.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]vectorstore.Match, 0, len(s.records))
	for _, r := range s.records {
		if documentID != "" && r.Metadata.DocumentID != documentID {
			continue
		}
		d, err := vectorstore.CosineDistance(embedding, r.Embedding)
		if err != nil {
			continue
		}
		matches = append(matches, vectorstore.Match{ID: r.ID, Text: r.Text, Metadata: r.Metadata, Distance: d})
	}
	return vectorstore.Rank(matches, topK), nil
}

func (s *Store) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *Store) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.Metadata.DocumentID == documentID {
			delete(s.records, id)
		}
	}
	return nil
}

func (s *Store) DeleteStale(_ context.Context, documentID string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.Metadata.DocumentID == documentID && r.Metadata.Ordinal >= keep {
			delete(s.records, id)
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }
