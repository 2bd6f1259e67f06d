package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/pdfrag/vectorstore"
)

func openTemp(t *testing.T, model string) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index", "vectors.db")
	s, err := Open(path, model)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func records() []vectorstore.Record {
	return []vectorstore.Record{
		{ID: "manual_0", Text: "intro", Embedding: []float32{0, 1}, Metadata: vectorstore.Metadata{Page: 1, ChunkID: "chunk_000001_a", PDFPath: "/raw/manual.pdf", DocumentID: "manual"}},
		{ID: "manual_1", Text: "warranty", Embedding: []float32{1, 0}, Metadata: vectorstore.Metadata{Page: 2, ChunkID: "chunk_000002_b", Ordinal: 1, PDFPath: "/raw/manual.pdf", DocumentID: "manual"}},
		{ID: "other_0", Text: "other", Embedding: []float32{0.6, 0.8}, Metadata: vectorstore.Metadata{Page: 1, ChunkID: "chunk_000001_c", DocumentID: "other"}},
	}
}

func TestUpsertQueryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t, "m1")
	require.NoError(t, s.Upsert(ctx, records()))
	require.NoError(t, s.Upsert(ctx, records()))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	matches, err := s.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "manual_1", matches[0].ID)
	assert.Equal(t, "warranty", matches[0].Text)
	assert.Equal(t, vectorstore.Metadata{Page: 2, ChunkID: "chunk_000002_b", Ordinal: 1, PDFPath: "/raw/manual.pdf", DocumentID: "manual"}, matches[0].Metadata)
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)
	assert.Equal(t, "other_0", matches[1].ID)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t, "m1")
	require.NoError(t, s.Upsert(ctx, records()))
	require.NoError(t, s.Close())

	reopened, err := Open(path, "m1")
	require.NoError(t, err)
	defer reopened.Close()
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestOtherModelRowsAreInvisible(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t, "m1")
	require.NoError(t, s.Upsert(ctx, records()))

	other, err := Open(path, "m2")
	require.NoError(t, err)
	defer other.Close()

	n, err := other.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	matches, err := other.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t, "m1")
	require.NoError(t, s.Upsert(ctx, records()))
	require.NoError(t, s.DeleteDocument(ctx, "manual"))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBlobRoundTrip(t *testing.T) {
	v := []float32{0.25, -1.5, 3}
	assert.Equal(t, v, blobToVector(vectorToBlob(v)))
}

func TestQueryDocumentScopesToOneDocument(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t, "m1")
	require.NoError(t, s.Upsert(ctx, records()))

	matches, err := s.QueryDocument(ctx, "manual", []float32{0.6, 0.8}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, "manual", m.Metadata.DocumentID)
	}

	all, err := s.QueryDocument(ctx, "", []float32{0.6, 0.8}, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "other_0", all[0].ID)
}

func TestDeleteStaleKeepsLeadingOrdinals(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t, "m1")
	require.NoError(t, s.Upsert(ctx, records()))
	require.NoError(t, s.DeleteStale(ctx, "manual", 1))

	matches, err := s.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	var ids []string
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{"manual_0", "other_0"}, ids)
}

func TestOpenAddsOrdinalToLegacyDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE chunk_vectors (
		id TEXT PRIMARY KEY, document_id TEXT NOT NULL, chunk_id TEXT NOT NULL,
		page INTEGER NOT NULL, pdf_path TEXT NOT NULL, text TEXT NOT NULL,
		vector BLOB NOT NULL, dimension INTEGER NOT NULL, model TEXT NOT NULL,
		updated_at TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO chunk_vectors VALUES ('old_3', 'old', 'c', 1, '', 'old text', ?, 2, 'm1', '')`,
		vectorToBlob([]float32{1, 0}))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path, "m1")
	require.NoError(t, err)
	defer s.Close()

	matches, err := s.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 3, matches[0].Metadata.Ordinal)

	require.NoError(t, s.DeleteStale(ctx, "old", 2))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
