// Package sqlite stores chunk vectors in a SQLite file and ranks them with a
// brute-force cosine scan.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/itish2003/pdfrag/vectorstore"
)

//go:embed schema.sql
var schema string

// Store only ranks rows written with its own embedding model.
type Store struct {
	db    *sql.DB
	path  string
	model string
}

// Open opens or creates the database at path.
func Open(path, model string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	if err := addOrdinalColumn(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db, path: path, model: model}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunk_vectors
			(id, document_id, chunk_id, ordinal, page, pdf_path, text, vector, dimension, model, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, r := range records {
		if len(r.Embedding) == 0 {
			return fmt.Errorf("record %s has an empty embedding", r.ID)
		}
		m := r.Metadata
		if _, err := stmt.ExecContext(ctx, r.ID, m.DocumentID, m.ChunkID, m.Ordinal, m.Page, m.PDFPath, r.Text,
			vectorToBlob(r.Embedding), len(r.Embedding), s.model, now); err != nil {
			return fmt.Errorf("failed to upsert record %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_id, ordinal, page, pdf_path, text, vector
		FROM chunk_vectors
		WHERE model = ? AND dimension = ? AND (? = '' OR document_id = ?)
	`, s.model, len(embedding), documentID, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	var matches []vectorstore.Match
	for rows.Next() {
		var m vectorstore.Match
		var blob []byte
		if err := rows.Scan(&m.ID, &m.Metadata.DocumentID, &m.Metadata.ChunkID, &m.Metadata.Ordinal, &m.Metadata.Page,
			&m.Metadata.PDFPath, &m.Text, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		d, err := vectorstore.CosineDistance(embedding, blobToVector(blob))
		if err != nil {
			continue
		}
		m.Distance = d
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return vectorstore.Rank(matches, topK), nil
}

// Count returns the number of rows queryable with the store's model.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunk_vectors WHERE model = ?", s.model).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunk_vectors WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}
	return nil
}

func (s *Store) DeleteStale(ctx context.Context, documentID string, keep int) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunk_vectors WHERE document_id = ? AND ordinal >= ?", documentID, keep); err != nil {
		return fmt.Errorf("failed to delete stale records of %s: %w", documentID, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// addOrdinalColumn upgrades databases created before records carried their
// ordinal.
func addOrdinalColumn(db *sql.DB) error {
	rows, err := db.Query("PRAGMA table_info(chunk_vectors)")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		if name == "ordinal" {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()
	if _, err := db.Exec("ALTER TABLE chunk_vectors ADD COLUMN ordinal INTEGER NOT NULL DEFAULT 0"); err != nil {
		return err
	}
	// Existing ids are <document_id>_<ordinal>.
	_, err = db.Exec(`
		UPDATE chunk_vectors
		SET ordinal = CAST(substr(id, length(document_id) + 2) AS INTEGER)
		WHERE substr(id, 1, length(document_id) + 1) = document_id || '_'
	`)
	return err
}

func vectorToBlob(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func blobToVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
