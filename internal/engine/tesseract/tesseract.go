// Package tesseract implements the OCR engine port on the local Tesseract
// binary via gosseract.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/kuldoc/ocrflow/internal/domain"
)

var supportedFileTypes = map[domain.FileType]bool{
	domain.FileTypePDF:  true,
	domain.FileTypePNG:  true,
	domain.FileTypeJPG:  true,
	domain.FileTypeJPEG: true,
}

// Options configures the Tesseract engine.
type Options struct {
	// Languages are trained-data hints, e.g. "eng", "deu". Empty means the
	// Tesseract default.
	Languages []string
}

// Engine runs OCR through a short-lived gosseract client per call, which
// keeps calls independent and safe across goroutines.
type Engine struct {
	clientFactory func() *gosseract.Client
	languages     []string
	version       string
}

// New probes the Tesseract installation and returns a ready engine. An
// unreachable or broken installation is reported as EngineUnavailable.
func New(opts Options) (*Engine, error) {
	e := &Engine{
		clientFactory: gosseract.NewClient,
		languages:     append([]string(nil), opts.Languages...),
	}

	client := e.clientFactory()
	defer client.Close()
	version := client.Version()
	if version == "" {
		return nil, fmt.Errorf("tesseract is not installed or not accessible: %w",
			domain.ErrEngineUnavailable)
	}
	e.version = version
	return e, nil
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Version() string { return e.version }

func (e *Engine) SupportsFileType(fileType domain.FileType) bool {
	return supportedFileTypes[fileType]
}

func (e *Engine) ProcessImage(ctx context.Context, img image.Image) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode page image: %w", err)
	}

	client := e.clientFactory()
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(e.languages) > 0 {
		if err := client.SetLanguage(e.languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
