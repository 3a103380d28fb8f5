package domain

import (
	"image"
	"strings"
)

// TextLevel identifies the layout granularity of a recognized text part.
type TextLevel string

const (
	TextLevelWord  TextLevel = "word"
	TextLevelLine  TextLevel = "line"
	TextLevelBlock TextLevel = "block"
)

// BoundingBox is a rectangle in page pixel coordinates, origin top-left.
type BoundingBox struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// TextPart is one recognized piece of text with its position. Confidence is
// nil when the engine does not report one.
type TextPart struct {
	Text       string      `json:"text"`
	BBox       BoundingBox `json:"bbox"`
	Confidence *float64    `json:"confidence"`
	Level      TextLevel   `json:"level"`
}

// PageMetadata describes the page an engine result was extracted from.
type PageMetadata struct {
	PageNumber int `json:"page_number"`
	Width      int `json:"width"`
	Height     int `json:"height"`
	Rotation   int `json:"rotation"`
}

// PagePart is the OCR output for a single page: ordered text parts plus the
// page dimensions they refer to.
type PagePart struct {
	Parts    []TextPart   `json:"parts"`
	Metadata PageMetadata `json:"metadata"`
}

// FullText concatenates the text of all parts in order.
func (p PagePart) FullText() string {
	var b strings.Builder
	for _, part := range p.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

// WrapTextInPagePart builds a PagePart holding the full page text as a
// single block-level part spanning the whole page.
func WrapTextInPagePart(text string, pageNumber, width, height int) PagePart {
	return PagePart{
		Parts: []TextPart{{
			Text:  text,
			BBox:  BoundingBox{XMin: 0, YMin: 0, XMax: float64(width), YMax: float64(height)},
			Level: TextLevelBlock,
		}},
		Metadata: PageMetadata{PageNumber: pageNumber, Width: width, Height: height},
	}
}

// PageRef locates a page within a document.
type PageRef struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
}

// ProcessedPage pairs a page reference with its OCR output.
type ProcessedPage struct {
	Ref    PageRef  `json:"ref"`
	Result PagePart `json:"result"`
}

// PageInput is one decoded page image produced lazily by a document loader
// and consumed by the OCR engine.
type PageInput struct {
	Image              image.Image
	PageNumber         int
	OriginalDocumentID string
}
