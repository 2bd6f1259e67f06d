// Package pdfdoc reads, searches, renders and annotates PDFs with unipdf.
package pdfdoc

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/core"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"github.com/unidoc/unipdf/v3/render"

	"github.com/itish2003/pdfrag/highlight"
	"github.com/itish2003/pdfrag/textnorm"
)

// SetLicense installs the unidoc metered license key. Without one, PDF
// processing fails at the first page.
func SetLicense(key string) error {
	if key == "" {
		log.Println("PDF WARN: UNIDOC_LICENSE_KEY is not set, PDF processing will fail.")
		return nil
	}
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("failed to set unidoc license key: %w", err)
	}
	return nil
}

// Opener opens PDFs for the highlight locator.
type Opener struct{}

func (Opener) Open(path string) (highlight.Document, error) {
	return Open(path)
}

type pageText struct {
	text  string
	marks *extractor.TextMarkArray
}

// Document is an open PDF. Pages are loaded once and annotated in memory
// until Save.
type Document struct {
	path  string
	f     *os.File
	pages []*model.PdfPage
	texts map[int]*pageText
}

func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	reader, err := model.NewPdfReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read pdf %s: %w", path, err)
	}
	n, err := reader.GetNumPages()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to count pages of %s: %w", path, err)
	}
	pages := make([]*model.PdfPage, 0, n)
	for i := 1; i <= n; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to load page %d of %s: %w", i, path, err)
		}
		pages = append(pages, page)
	}
	return &Document{path: path, f: f, pages: pages, texts: make(map[int]*pageText)}, nil
}

func (d *Document) NumPages() int { return len(d.pages) }

func (d *Document) page(n int) (*model.PdfPage, error) {
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range [1, %d]", n, len(d.pages))
	}
	return d.pages[n-1], nil
}

func (d *Document) extract(n int) (*pageText, error) {
	if pt, ok := d.texts[n]; ok {
		return pt, nil
	}
	page, err := d.page(n)
	if err != nil {
		return nil, err
	}
	ex, err := extractor.New(page)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor for page %d: %w", n, err)
	}
	text, _, _, err := ex.ExtractPageText()
	if err != nil {
		return nil, fmt.Errorf("failed to extract text of page %d: %w", n, err)
	}
	pt := &pageText{text: text.Text(), marks: text.Marks()}
	d.texts[n] = pt
	return pt, nil
}

// PageText returns the text layer of a 1-based page.
func (d *Document) PageText(n int) (string, error) {
	pt, err := d.extract(n)
	if err != nil {
		return "", err
	}
	return pt.text, nil
}

// Search finds needle in the page text layer and returns one rectangle per
// text line covered by each occurrence.
func (d *Document) Search(n int, needle string) ([]highlight.Rect, error) {
	pt, err := d.extract(n)
	if err != nil {
		return nil, err
	}
	box, err := d.mediaBox(n)
	if err != nil {
		return nil, err
	}
	var rects []highlight.Rect
	for _, span := range textnorm.Fold(pt.text).FindAll(needle) {
		marks, err := pt.marks.RangeOffset(span.Start, span.End)
		if err != nil {
			log.Printf("PDF WARN: no marks for offsets [%d, %d) on page %d: %v", span.Start, span.End, n, err)
			continue
		}
		for _, r := range lineBoxes(marks.Elements()) {
			rects = append(rects, toPage(box, r))
		}
	}
	return rects, nil
}

// Highlight adds one highlight annotation per rectangle.
func (d *Document) Highlight(n int, rects ...highlight.Rect) error {
	page, err := d.page(n)
	if err != nil {
		return err
	}
	box, err := d.mediaBox(n)
	if err != nil {
		return err
	}
	for _, r := range rects {
		pr := fromPage(box, r)
		annot := model.NewPdfAnnotationHighlight()
		annot.Rect = core.MakeArrayFromFloats([]float64{pr.Llx, pr.Lly, pr.Urx, pr.Ury})
		annot.QuadPoints = core.MakeArrayFromFloats([]float64{
			pr.Llx, pr.Ury, pr.Urx, pr.Ury,
			pr.Llx, pr.Lly, pr.Urx, pr.Lly,
		})
		annot.C = core.MakeArrayFromFloats([]float64{1, 1, 0})
		annot.CA = core.MakeFloat(0.4)
		page.AddAnnotation(annot.PdfAnnotation)
	}
	return nil
}

// Save writes every page, with its annotations, to path.
func (d *Document) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	w := model.NewPdfWriter()
	for i, page := range d.pages {
		if err := w.AddPage(page); err != nil {
			return fmt.Errorf("failed to add page %d: %w", i+1, err)
		}
	}
	if err := w.WriteToFile(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// RenderPage rasterises a page to a PNG at roughly dpi and returns the
// effective pixels-per-point zoom.
func (d *Document) RenderPage(n int, dpi float64, outPath string) (float64, error) {
	page, err := d.page(n)
	if err != nil {
		return 0, err
	}
	box, err := d.mediaBox(n)
	if err != nil {
		return 0, err
	}
	width := box.Urx - box.Llx
	if width <= 0 {
		return 0, fmt.Errorf("page %d has an empty media box", n)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", outPath, err)
	}
	device := render.NewImageDevice()
	device.OutputWidth = int(math.Round(width * dpi / 72))
	if err := device.RenderToPath(page, outPath); err != nil {
		return 0, fmt.Errorf("failed to render page %d: %w", n, err)
	}
	return float64(device.OutputWidth) / width, nil
}

func (d *Document) Close() error {
	return d.f.Close()
}

func (d *Document) mediaBox(n int) (model.PdfRectangle, error) {
	page, err := d.page(n)
	if err != nil {
		return model.PdfRectangle{}, err
	}
	box, err := page.GetMediaBox()
	if err != nil {
		return model.PdfRectangle{}, fmt.Errorf("failed to get media box of page %d: %w", n, err)
	}
	return *box, nil
}
