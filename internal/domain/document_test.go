package domain

import (
	"errors"
	"testing"
)

func TestNewDocument(t *testing.T) {
	doc, err := NewDocument("doc-1", "doc-1.pdf", FileTypePDF, 2048)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Name() != "doc-1.pdf" {
		t.Fatalf("expected name doc-1.pdf, got %s", doc.Name())
	}
	if !doc.IsPDF() || doc.IsImage() {
		t.Fatal("expected a PDF document")
	}
	if doc.MIMEType() != "application/pdf" {
		t.Fatalf("unexpected MIME type %s", doc.MIMEType())
	}
}

func TestNewDocumentExtensionMismatch(t *testing.T) {
	if _, err := NewDocument("doc-1", "doc-1.png", FileTypePDF, 10); err == nil {
		t.Fatal("expected an error when the extension does not match the declared type")
	}
}

func TestNewDocumentUnsupportedType(t *testing.T) {
	_, err := NewDocument("doc-1", "doc-1.tiff", FileType("tiff"), 10)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if !IsPermanent(err) {
		t.Fatal("unsupported type must be a permanent error")
	}
}

func TestParseFileType(t *testing.T) {
	tests := []struct {
		in      string
		want    FileType
		wantErr bool
	}{
		{"pdf", FileTypePDF, false},
		{"PNG", FileTypePNG, false},
		{".jpeg", FileTypeJPEG, false},
		{"webp", FileTypeWEBP, false},
		{"tiff", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFileType(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedType) {
				t.Errorf("ParseFileType(%q): expected ErrUnsupportedType, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFileType(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFileType(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDocumentInput(t *testing.T) {
	doc, err := NewDocument("doc-1", "doc-1.jpg", FileTypeJPG, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := doc.Input()
	if in.ID != doc.ID || in.FilePath != doc.FilePath || in.FileType != doc.FileType {
		t.Fatalf("input does not mirror the document: %+v", in)
	}
}
