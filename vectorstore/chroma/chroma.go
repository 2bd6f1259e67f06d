// Package chroma keeps chunk vectors in a Chroma collection.
package chroma

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/itish2003/pdfrag/vectorstore"
)

const DefaultCollection = "pdf_chunks"

type Config struct {
	URL        string
	Collection string
}

type Store struct {
	client     chromago.Client
	collection chromago.Collection
}

// Open connects to the Chroma server and gets or creates the collection
// with cosine distance.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var opts []chromago.ClientOption
	if cfg.URL != "" {
		opts = append(opts, chromago.WithBaseURL(cfg.URL))
	}
	client, err := chromago.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}
	name := cfg.Collection
	if name == "" {
		name = DefaultCollection
	}

	log.Printf("CHROMA: getting or creating collection '%s'", name)
	collection, err := client.GetOrCreateCollection(ctx, name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", "cosine"),
				chromago.NewStringAttribute("created_by", "pdfrag"),
			),
		),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get or create collection %s: %w", name, err)
	}
	return &Store{client: client, collection: collection}, nil
}

func (s *Store) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]chromago.DocumentID, len(records))
	texts := make([]string, len(records))
	embs := make([]embeddings.Embedding, len(records))
	metas := make([]chromago.DocumentMetadata, len(records))
	for i, r := range records {
		ids[i] = chromago.DocumentID(r.ID)
		texts[i] = r.Text
		embs[i] = embeddings.NewEmbeddingFromFloat32(r.Embedding)
		metas[i] = chromago.NewDocumentMetadata(
			chromago.NewIntAttribute("page", int64(r.Metadata.Page)),
			chromago.NewStringAttribute("chunk_id", r.Metadata.ChunkID),
			chromago.NewStringAttribute("pdf_path", r.Metadata.PDFPath),
			chromago.NewStringAttribute("document_id", r.Metadata.DocumentID),
			chromago.NewIntAttribute("ordinal", int64(r.Metadata.Ordinal)),
		)
	}
	err := s.collection.Upsert(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(embs...),
		chromago.WithMetadatas(metas...),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %d records: %w", len(records), err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]vectorstore.Match, error) {
	return s.QueryDocument(ctx, "", embedding, topK)
}

func (s *Store) QueryDocument(ctx context.Context, documentID string, embedding []float32, topK int) ([]vectorstore.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	opts := []chromago.CollectionQueryOption{
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(embedding)),
		chromago.WithNResults(topK),
	}
	if documentID != "" {
		opts = append(opts, chromago.WithWhereQuery(chromago.EqString("document_id", documentID)))
	}
	results, err := s.collection.Query(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chroma: %w", err)
	}

	idGroups := results.GetIDGroups()
	docGroups := results.GetDocumentsGroups()
	metaGroups := results.GetMetadatasGroups()
	distGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 {
		return nil, nil
	}

	hits := make([]hit, len(idGroups[0]))
	for i, id := range idGroups[0] {
		h := hit{id: string(id)}
		if len(docGroups) > 0 && i < len(docGroups[0]) && docGroups[0][i] != nil {
			h.text = docGroups[0][i].ContentString()
		}
		if len(metaGroups) > 0 && i < len(metaGroups[0]) && metaGroups[0][i] != nil {
			h.meta = decodeMetadata(metaGroups[0][i])
		}
		if len(distGroups) > 0 && i < len(distGroups[0]) {
			h.distance = float64(distGroups[0][i])
		}
		hits[i] = h
	}
	return toMatches(hits, topK), nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count chroma collection: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	where := chromago.EqString("document_id", documentID)
	if err := s.collection.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}
	return nil
}

func (s *Store) DeleteStale(ctx context.Context, documentID string, keep int) error {
	where := chromago.And(
		chromago.EqString("document_id", documentID),
		chromago.GteInt("ordinal", keep),
	)
	if err := s.collection.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
		return fmt.Errorf("failed to delete stale records of %s: %w", documentID, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

type hit struct {
	id       string
	text     string
	meta     vectorstore.Metadata
	distance float64
}

func toMatches(hits []hit, topK int) []vectorstore.Match {
	matches := make([]vectorstore.Match, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, vectorstore.Match{ID: h.id, Text: h.text, Metadata: h.meta, Distance: h.distance})
	}
	return vectorstore.Rank(matches, topK)
}

// decodeMetadata reads chunk metadata back through its JSON form.
func decodeMetadata(md chromago.DocumentMetadata) vectorstore.Metadata {
	var m vectorstore.Metadata
	raw, err := json.Marshal(md)
	if err != nil {
		log.Printf("CHROMA WARN: could not marshal metadata: %v", err)
		return m
	}
	if err := parseMetadata(raw, &m); err != nil {
		log.Printf("CHROMA WARN: could not unmarshal metadata: %v", err)
	}
	return m
}

// parseMetadata tolerates numeric fields encoded as floats.
func parseMetadata(raw []byte, m *vectorstore.Metadata) error {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	if v, ok := fields["page"].(float64); ok {
		m.Page = int(v)
	}
	m.ChunkID, _ = fields["chunk_id"].(string)
	m.PDFPath, _ = fields["pdf_path"].(string)
	m.DocumentID, _ = fields["document_id"].(string)
	if v, ok := fields["ordinal"].(float64); ok {
		m.Ordinal = int(v)
	}
	return nil
}
