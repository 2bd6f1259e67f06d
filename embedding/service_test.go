package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
)

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestServiceBatchesAndNormalises(t *testing.T) {
	var batches []int
	client := embeddings.EmbedderClientFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		batches = append(batches, len(texts))
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{float32(i + 1), 0, 0}
		}
		return out, nil
	})
	svc, err := NewService(client, "fake", 2)
	require.NoError(t, err)

	texts := []string{"a\nb", "c", "d", "e", "f"}
	vecs, err := svc.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	assert.Equal(t, []int{2, 2, 1}, batches)
	assert.Equal(t, "a\nb", texts[0], "caller slice must not be modified")
	for _, v := range vecs {
		assert.InDelta(t, 1.0, Dot(v, v), 1e-6)
	}
	assert.Equal(t, "fake", svc.Model())
	assert.Equal(t, 2, svc.BatchSize())
}

func TestServiceProviderError(t *testing.T) {
	boom := errors.New("boom")
	client := embeddings.EmbedderClientFunc(func(context.Context, []string) ([][]float32, error) {
		return nil, boom
	})
	svc, err := NewService(client, "fake", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, svc.BatchSize())

	_, err = svc.EmbedQuery(context.Background(), "hello")
	assert.ErrorIs(t, err, boom)
}

func TestServiceRejectsEmptyVectors(t *testing.T) {
	client := embeddings.EmbedderClientFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		return make([][]float32, len(texts)), nil
	})
	svc, err := NewService(client, "fake", 4)
	require.NoError(t, err)
	_, err = svc.EmbedDocuments(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestHashingSimilarity(t *testing.T) {
	svc, err := NewService(Hashing{Dimension: 256}, "hashing", 64)
	require.NoError(t, err)
	ctx := context.Background()

	docs, err := svc.EmbedDocuments(ctx, []string{
		"The warranty period is 24 months.",
		"Shipping takes five business days.",
	})
	require.NoError(t, err)
	q, err := svc.EmbedQuery(ctx, "How long is the warranty period?")
	require.NoError(t, err)

	assert.Greater(t, Dot(q, docs[0]), Dot(q, docs[1]))
	assert.InDelta(t, 1.0, math.Sqrt(Dot(q, q)), 1e-6)
}

func TestHashingDeterministic(t *testing.T) {
	a, err := Hashing{}.CreateEmbedding(context.Background(), []string{"same text"})
	require.NoError(t, err)
	b, err := Hashing{}.CreateEmbedding(context.Background(), []string{"same text"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a[0], DefaultHashingDimension)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"warranty", "period", "24", "months"}, Tokenize("The warranty period is 24 months."))
}
