package models

// Page is one physical page of an ingested PDF, one line of pages.jsonl.
type Page struct {
	PDFPath   string      `json:"pdf_path"`
	Page      int         `json:"page"`
	NPages    int         `json:"n_pages"`
	IsScanned bool        `json:"is_scanned"`
	Text      string      `json:"text"`
	OCR       *OCRPayload `json:"ocr"`
}

// OCRPayload holds the word-level OCR output of a scanned page.
type OCRPayload struct {
	ImagePath string    `json:"image_path"`
	Zoom      float64   `json:"zoom"`
	Words     []OCRWord `json:"words"`
}

// OCRWord is a recognised word with its box in page coordinates
// (x0, y0, x1, y1; origin at the top-left corner of the page).
type OCRWord struct {
	Text string    `json:"text"`
	BBox []float64 `json:"bbox"`
}

// Box returns the word's bounding box. ok is false when the box is
// missing or malformed.
func (w OCRWord) Box() (x0, y0, x1, y1 float64, ok bool) {
	if len(w.BBox) != 4 {
		return 0, 0, 0, 0, false
	}
	x0, y0, x1, y1 = w.BBox[0], w.BBox[1], w.BBox[2], w.BBox[3]
	if x1 <= x0 || y1 <= y0 {
		return 0, 0, 0, 0, false
	}
	return x0, y0, x1, y1, true
}

// HasOCRWords reports whether the page carries word-level OCR data.
func (p Page) HasOCRWords() bool {
	return p.OCR != nil && len(p.OCR.Words) > 0
}
