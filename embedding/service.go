// Package embedding turns text into L2-normalised vectors. Providers plug in
// through the langchaingo EmbedderClient interface.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
)

const DefaultBatchSize = 64

var ErrEmptyEmbedding = errors.New("provider returned an empty embedding")

// Service embeds documents and queries with one provider and one model, so
// stored vectors and query vectors share a space.
type Service struct {
	embedder  *embeddings.EmbedderImpl
	model     string
	batchSize int
}

// NewService wraps client. model is recorded alongside stored vectors.
func NewService(client embeddings.EmbedderClient, model string, batchSize int) (*Service, error) {
	if client == nil {
		return nil, errors.New("embedding client is nil")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	e, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return &Service{embedder: e, model: model, batchSize: batchSize}, nil
}

func (s *Service) Model() string  { return s.model }
func (s *Service) BatchSize() int { return s.batchSize }

// EmbedDocuments returns one normalised vector per text, in order.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	// the embedder rewrites its input slice in place
	in := make([]string, len(texts))
	copy(in, texts)

	vecs, err := s.embedder.EmbedDocuments(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d texts with %s: %w", len(texts), s.model, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("text %d: %w", i, ErrEmptyEmbedding)
		}
		vecs[i] = Normalize(v)
	}
	return vecs, nil
}

// EmbedQuery returns the normalised vector of a single query.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedDocuments(ctx, []string{strings.TrimSpace(text)})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Normalize returns a unit-length copy of v. A zero vector is returned
// unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	copy(out, v)
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}

// Dot returns the dot product of two vectors of equal length.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
