// Package highlight maps evidence snippets back onto page geometry and
// writes an annotated copy of the source PDF.
package highlight

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/itish2003/pdfrag/artifact"
	"github.com/itish2003/pdfrag/models"
)

var ErrInputMissing = errors.New("highlight input missing")

// Rect is a page region in top-left origin page coordinates.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Document is an open PDF that can be searched and annotated in memory.
type Document interface {
	NumPages() int
	// Search returns the regions of every occurrence of needle on a 1-based
	// page, ignoring case and whitespace differences.
	Search(page int, needle string) ([]Rect, error)
	Highlight(page int, rects ...Rect) error
	Save(path string) error
	Close() error
}

type Opener interface {
	Open(path string) (Document, error)
}

type Method string

const (
	MethodExact   Method = "exact"
	MethodOCR     Method = "ocr"
	MethodNone    Method = "none"
	MethodSkipped Method = "skipped"
)

// Outcome is what happened to one evidence item.
type Outcome struct {
	Index   int    `json:"index"`
	Page    int    `json:"page"`
	Method  Method `json:"method"`
	Regions int    `json:"regions"`
	Reason  string `json:"reason,omitempty"`
}

type Report struct {
	Output       string    `json:"output"`
	Outcomes     []Outcome `json:"outcomes"`
	SkippedLines int       `json:"skipped_lines"`
}

// Highlighted counts evidence items that produced at least one region.
func (r *Report) Highlighted() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Regions > 0 {
			n++
		}
	}
	return n
}

type Locator struct {
	opener Opener
}

func NewLocator(opener Opener) *Locator {
	return &Locator{opener: opener}
}

// Locate highlights every evidence snippet it can find and writes the
// result to outPath. The source PDF is never modified.
func (l *Locator) Locate(pdfPath, pagesPath string, evidence []models.Evidence, outPath string) (*Report, error) {
	for _, p := range []string{pdfPath, pagesPath} {
		if p == "" {
			return nil, fmt.Errorf("%w: empty path", ErrInputMissing)
		}
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInputMissing, p, err)
		}
	}

	pages, diag, err := artifact.ReadPages(pagesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read pages: %w", err)
	}
	if diag.SkippedCount() > 0 {
		log.Printf("HIGHLIGHT: skipped %d malformed lines in %s", diag.SkippedCount(), pagesPath)
	}
	byPage := make(map[int]models.Page, len(pages))
	for _, p := range pages {
		byPage[p.Page] = p
	}

	doc, err := l.opener.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", pdfPath, err)
	}
	defer doc.Close()

	report := &Report{Output: outPath, SkippedLines: diag.SkippedCount()}
	for i, ev := range evidence {
		outcome := Outcome{Index: i, Page: ev.Page}
		snippet := strings.TrimSpace(ev.Snippet)
		switch {
		case snippet == "":
			outcome.Method, outcome.Reason = MethodSkipped, "empty snippet"
		case ev.Page < 1 || ev.Page > doc.NumPages():
			outcome.Method, outcome.Reason = MethodSkipped, fmt.Sprintf("page %d out of range", ev.Page)
		default:
			outcome.Method, outcome.Regions = l.mark(doc, ev.Page, snippet, byPage[ev.Page])
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := doc.Save(outPath); err != nil {
		return nil, fmt.Errorf("failed to save annotated pdf: %w", err)
	}
	log.Printf("HIGHLIGHT: %d/%d evidence items highlighted -> %s", report.Highlighted(), len(evidence), outPath)
	return report, nil
}

func (l *Locator) mark(doc Document, page int, snippet string, meta models.Page) (Method, int) {
	rects, err := doc.Search(page, snippet)
	if err != nil {
		log.Printf("HIGHLIGHT WARN: text search failed on page %d: %v", page, err)
	}
	if len(rects) > 0 {
		if err := doc.Highlight(page, rects...); err != nil {
			log.Printf("HIGHLIGHT WARN: could not annotate page %d: %v", page, err)
			return MethodExact, 0
		}
		return MethodExact, len(rects)
	}

	if !meta.HasOCRWords() {
		return MethodNone, 0
	}
	rects = OCRMatches(meta.OCR.Words, snippet)
	if len(rects) == 0 {
		return MethodNone, 0
	}
	if err := doc.Highlight(page, rects...); err != nil {
		log.Printf("HIGHLIGHT WARN: could not annotate page %d: %v", page, err)
		return MethodOCR, 0
	}
	return MethodOCR, len(rects)
}

// OCRMatches returns the boxes of OCR words that contain the snippet or
// appear as a whole token of it. Words without a usable box are ignored.
func OCRMatches(words []models.OCRWord, snippet string) []Rect {
	needle := strings.ToLower(strings.TrimSpace(snippet))
	if needle == "" {
		return nil
	}
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(needle) {
		if tok = trimPunct(tok); tok != "" {
			tokens[tok] = struct{}{}
		}
	}

	var rects []Rect
	for _, w := range words {
		text := strings.ToLower(strings.TrimSpace(w.Text))
		if text == "" {
			continue
		}
		_, whole := tokens[trimPunct(text)]
		if !whole && !strings.Contains(text, needle) {
			continue
		}
		x0, y0, x1, y1, ok := w.Box()
		if !ok {
			continue
		}
		rects = append(rects, Rect{X0: x0, Y0: y0, X1: x1, Y1: y1})
	}
	return rects
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, unicode.IsPunct)
}
