// Package artifact reads and writes the JSONL files produced by ingestion
// and chunking. Readers skip malformed lines and report them instead of
// failing the whole file.
package artifact

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/itish2003/pdfrag/models"
)

const (
	PagesFile  = "pages.jsonl"
	ChunksFile = "chunks.jsonl"

	maxLineSize = 32 * 1024 * 1024
)

// ErrEmpty is returned when an artifact holds no well-formed record.
var ErrEmpty = errors.New("artifact has no records")

// SkippedLine records a line that could not be decoded.
type SkippedLine struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

// Diagnostics describes what a reader skipped.
type Diagnostics struct {
	Path    string        `json:"path"`
	Skipped []SkippedLine `json:"skipped,omitempty"`
}

func (d Diagnostics) SkippedCount() int { return len(d.Skipped) }

// ReadPages loads pages.jsonl. Records without a page number get their
// 1-based position among well-formed records.
func ReadPages(path string) ([]models.Page, Diagnostics, error) {
	pages, diag, err := readJSONL[models.Page](path)
	if err != nil {
		return nil, diag, err
	}
	for i := range pages {
		if pages[i].Page <= 0 {
			pages[i].Page = i + 1
		}
	}
	return pages, diag, nil
}

// ReadChunks loads chunks.jsonl.
func ReadChunks(path string) ([]models.Chunk, Diagnostics, error) {
	return readJSONL[models.Chunk](path)
}

// FirstPage returns the first well-formed record of a pages artifact.
func FirstPage(path string) (models.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Page{}, err
	}
	defer f.Close()

	var first models.Page
	found := false
	err = scan(f, func(_ int, line []byte) error {
		if err := json.Unmarshal(line, &first); err != nil {
			return nil
		}
		found = true
		return io.EOF
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return models.Page{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !found {
		return models.Page{}, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	return first, nil
}

func WritePages(path string, pages []models.Page) error {
	return writeJSONL(path, pages)
}

func WriteChunks(path string, chunks []models.Chunk) error {
	return writeJSONL(path, chunks)
}

func readJSONL[T any](path string) ([]T, Diagnostics, error) {
	diag := Diagnostics{Path: path}
	f, err := os.Open(path)
	if err != nil {
		return nil, diag, err
	}
	defer f.Close()

	var out []T
	err = scan(f, func(n int, line []byte) error {
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			diag.Skipped = append(diag.Skipped, SkippedLine{Line: n, Err: err.Error()})
			return nil
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, diag, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return out, diag, nil
}

// scan calls fn for every non-blank line with its 1-based line number.
// Returning io.EOF from fn stops the scan early.
func scan(r io.Reader, fn func(n int, line []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// writeJSONL writes rows to a temp file next to path and renames it into
// place, so readers never see a half-written artifact.
func writeJSONL[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to encode record for %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
