package pdfdoc

import (
	"math"
	"strings"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/itish2003/pdfrag/highlight"
)

// toPage converts a PDF user-space rectangle to top-left origin page
// coordinates relative to the media box.
func toPage(box model.PdfRectangle, r model.PdfRectangle) highlight.Rect {
	return highlight.Rect{
		X0: r.Llx - box.Llx,
		Y0: box.Ury - r.Ury,
		X1: r.Urx - box.Llx,
		Y1: box.Ury - r.Lly,
	}
}

// fromPage is the inverse of toPage.
func fromPage(box model.PdfRectangle, r highlight.Rect) model.PdfRectangle {
	return model.PdfRectangle{
		Llx: box.Llx + r.X0,
		Lly: box.Ury - r.Y1,
		Urx: box.Llx + r.X1,
		Ury: box.Ury - r.Y0,
	}
}

// lineBoxes merges the boxes of consecutive marks on the same baseline.
func lineBoxes(marks []extractor.TextMark) []model.PdfRectangle {
	var lines []model.PdfRectangle
	for _, m := range marks {
		b := m.BBox
		if strings.TrimSpace(m.Text) == "" || b.Urx <= b.Llx || b.Ury <= b.Lly {
			continue
		}
		if n := len(lines); n > 0 && sameLine(lines[n-1], b) {
			cur := &lines[n-1]
			cur.Llx = math.Min(cur.Llx, b.Llx)
			cur.Lly = math.Min(cur.Lly, b.Lly)
			cur.Urx = math.Max(cur.Urx, b.Urx)
			cur.Ury = math.Max(cur.Ury, b.Ury)
			continue
		}
		lines = append(lines, b)
	}
	return lines
}

func sameLine(a, b model.PdfRectangle) bool {
	h := math.Min(a.Ury-a.Lly, b.Ury-b.Lly)
	return math.Abs(a.Lly-b.Lly) < h/2
}
