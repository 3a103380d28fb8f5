package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kuldoc/ocrflow/internal/domain"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if err := s.Save(ctx, strings.NewReader("hello"), "abc.pdf", 5, "application/pdf"); err != nil {
		t.Fatalf("save: %v", err)
	}
	r, err := s.Load(ctx, "abc.pdf")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestLocalStorageLoadMissing(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = s.Load(context.Background(), "nope.png")
	if !errors.Is(err, domain.ErrFileDownload) {
		t.Fatalf("expected ErrFileDownload, got %v", err)
	}
}

func TestLocalStorageRequiresRoot(t *testing.T) {
	if _, err := NewLocalStorage(""); err == nil {
		t.Fatal("expected an error for an empty root")
	}
}
