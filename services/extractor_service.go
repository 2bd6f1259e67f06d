package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/itish2003/pdfrag/artifact"
	"github.com/itish2003/pdfrag/models"
	"github.com/itish2003/pdfrag/ocr"
	"github.com/itish2003/pdfrag/textnorm"
)

const (
	DefaultOCRDPI           = 300.0
	DefaultScannedThreshold = 20
)

// PageSource is an opened PDF read page by page.
type PageSource interface {
	NumPages() int
	PageText(page int) (string, error)
	// RenderPage writes a PNG of the page and returns pixels per point.
	RenderPage(page int, dpi float64, outPath string) (float64, error)
	Close() error
}

type PageSourceOpener func(path string) (PageSource, error)

type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) ([]ocr.Word, error)
}

// ExtractorService turns a PDF into pages.jsonl, running OCR on pages with
// too little text.
type ExtractorService struct {
	open             PageSourceOpener
	engine           OCREngine
	dpi              float64
	scannedThreshold int
}

// NewExtractorService returns an extractor. A nil engine disables OCR; scanned
// pages are then recorded with empty text.
func NewExtractorService(open PageSourceOpener, engine OCREngine, dpi float64, scannedThreshold int) *ExtractorService {
	if dpi <= 0 {
		dpi = DefaultOCRDPI
	}
	if scannedThreshold <= 0 {
		scannedThreshold = DefaultScannedThreshold
	}
	return &ExtractorService{open: open, engine: engine, dpi: dpi, scannedThreshold: scannedThreshold}
}

// ExtractPDF writes outDir/pages.jsonl for pdfPath and returns the pages.
func (s *ExtractorService) ExtractPDF(ctx context.Context, pdfPath, outDir string) ([]models.Page, string, error) {
	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return nil, "", fmt.Errorf("could not resolve %s: %w", pdfPath, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create %s: %w", outDir, err)
	}

	src, err := s.open(absPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", absPath, err)
	}
	defer src.Close()

	n := src.NumPages()
	pages := make([]models.Page, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		raw, err := src.PageText(i)
		if err != nil {
			log.Printf("EXTRACTOR WARN: no text layer on page %d of %s: %v", i, absPath, err)
		}
		raw = strings.TrimSpace(raw)
		page := models.Page{
			PDFPath:   absPath,
			Page:      i,
			NPages:    n,
			IsScanned: utf8.RuneCountInString(raw) < s.scannedThreshold,
		}
		if !page.IsScanned {
			page.Text = textnorm.Clean(raw)
		} else if payload, text, err := s.ocrPage(ctx, src, i, outDir); err != nil {
			log.Printf("EXTRACTOR WARN: OCR failed on page %d of %s: %v", i, absPath, err)
		} else {
			page.Text, page.OCR = text, payload
		}
		pages = append(pages, page)
	}

	pagesPath := filepath.Join(outDir, artifact.PagesFile)
	if err := artifact.WritePages(pagesPath, pages); err != nil {
		return nil, "", err
	}
	log.Printf("EXTRACTOR: %s -> %d pages (%s)", filepath.Base(absPath), len(pages), pagesPath)
	return pages, pagesPath, nil
}

func (s *ExtractorService) ocrPage(ctx context.Context, src PageSource, page int, outDir string) (*models.OCRPayload, string, error) {
	if s.engine == nil {
		return nil, "", fmt.Errorf("ocr disabled")
	}
	imgPath := filepath.Join(outDir, "ocr", fmt.Sprintf("page_%d.png", page))
	zoom, err := src.RenderPage(page, s.dpi, imgPath)
	if err != nil {
		return nil, "", err
	}
	words, err := s.engine.Recognize(ctx, imgPath)
	if err != nil {
		return nil, "", err
	}

	payload := &models.OCRPayload{ImagePath: imgPath, Zoom: zoom}
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		payload.Words = append(payload.Words, models.OCRWord{Text: text, BBox: w.BBox(zoom)})
		tokens = append(tokens, text)
	}
	return payload, textnorm.Clean(strings.Join(tokens, " ")), nil
}
