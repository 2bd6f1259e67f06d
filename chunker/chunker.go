// Package chunker splits page text into overlapping windows and assigns
// stable chunk ids.
package chunker

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"github.com/itish2003/pdfrag/models"
	"github.com/itish2003/pdfrag/textnorm"
)

const (
	DefaultWindowSize = 1000
	DefaultOverlap    = 200
)

// Splitter turns one page of text into parts. The signature matches the
// langchaingo textsplitter interface.
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// Span is a rune range [Start, End) of the text passed to SplitSpans.
type Span struct {
	Start int
	End   int
}

// SplitSpans computes the window boundaries Split uses, in runes.
func SplitSpans(text string, window, overlap int) []Span {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if window <= 0 {
		window = DefaultWindowSize
	}
	if overlap < 0 {
		overlap = 0
	}

	var spans []Span
	start := 0
	for start < n {
		end := min(start+window, n)
		if end < n {
			if cut := lastSentenceEnd(runes[start:end]); cut > (end-start)/2 {
				end = start + cut + 2
			}
		}
		spans = append(spans, Span{Start: start, End: end})
		if end >= n {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// Split cuts text into windows of at most window runes overlapping by
// overlap runes. A window that does not reach the end of the text is cut
// after the last ". " found past its midpoint. Parts are trimmed and empty
// parts dropped.
func Split(text string, window, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	var parts []string
	for _, s := range SplitSpans(text, window, overlap) {
		if part := strings.TrimSpace(string(runes[s.Start:s.End])); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func lastSentenceEnd(rs []rune) int {
	for i := len(rs) - 2; i >= 0; i-- {
		if rs[i] == '.' && rs[i+1] == ' ' {
			return i
		}
	}
	return -1
}

// Window is the default Splitter.
type Window struct {
	Size    int
	Overlap int
}

func (w Window) SplitText(text string) ([]string, error) {
	return Split(text, w.Size, w.Overlap), nil
}

// ChunkID formats the id of the n-th chunk of a document.
func ChunkID(n int, text string) string {
	sum := sha1.Sum([]byte(text))
	return fmt.Sprintf("chunk_%06d_%s", n, hex.EncodeToString(sum[:])[:16])
}

// Chunker turns pages into chunks.
type Chunker struct {
	splitter Splitter
}

// New returns a Chunker over splitter. A nil splitter means the default
// Window.
func New(splitter Splitter) *Chunker {
	if splitter == nil {
		splitter = Window{Size: DefaultWindowSize, Overlap: DefaultOverlap}
	}
	return &Chunker{splitter: splitter}
}

// Chunk splits every page and numbers the resulting chunks across the whole
// document. Each chunk stays on the page it came from.
func (c *Chunker) Chunk(pages []models.Page) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for _, p := range pages {
		parts, err := c.splitter.SplitText(p.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to split page %d: %w", p.Page, err)
		}
		for _, part := range parts {
			text := textnorm.Clean(part)
			if text == "" {
				continue
			}
			chunks = append(chunks, models.Chunk{
				ChunkID:   ChunkID(len(chunks)+1, text),
				Text:      text,
				PDFPath:   p.PDFPath,
				PageStart: p.Page,
				PageEnd:   p.Page,
				IsScanned: p.IsScanned,
			})
		}
	}
	log.Printf("CHUNKER: %d pages -> %d chunks", len(pages), len(chunks))
	return chunks, nil
}
