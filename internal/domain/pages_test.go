package domain

import "testing"

func TestWrapTextInPagePart(t *testing.T) {
	part := WrapTextInPagePart("hello world", 3, 640, 480)
	if len(part.Parts) != 1 {
		t.Fatalf("expected a single text part, got %d", len(part.Parts))
	}
	tp := part.Parts[0]
	if tp.Text != "hello world" {
		t.Fatalf("unexpected text %q", tp.Text)
	}
	if tp.Level != TextLevelBlock {
		t.Fatalf("expected block level, got %s", tp.Level)
	}
	if tp.Confidence != nil {
		t.Fatal("engines that report no confidence must leave it nil")
	}
	if tp.BBox.XMax != 640 || tp.BBox.YMax != 480 || tp.BBox.XMin != 0 || tp.BBox.YMin != 0 {
		t.Fatalf("expected bbox spanning the page, got %+v", tp.BBox)
	}
	if part.Metadata.PageNumber != 3 || part.Metadata.Width != 640 || part.Metadata.Height != 480 {
		t.Fatalf("unexpected metadata %+v", part.Metadata)
	}
}

func TestFullText(t *testing.T) {
	part := PagePart{Parts: []TextPart{
		{Text: "first "},
		{Text: "second "},
		{Text: "third"},
	}}
	if got := part.FullText(); got != "first second third" {
		t.Fatalf("unexpected full text %q", got)
	}

	if got := (PagePart{}).FullText(); got != "" {
		t.Fatalf("expected empty text for an empty page, got %q", got)
	}
}
