// Package vertex implements the OCR engine port on Vertex AI Gemini vision.
// It is the managed alternative to the local Tesseract engine for
// deployments without a Tesseract installation.
package vertex

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/kuldoc/ocrflow/internal/domain"
)

const extractionPrompt = `Extract every piece of text visible in this page image, in natural reading order. Return only the extracted text with no commentary, no markdown fences and no descriptions of non-text content. Return an empty response if the page contains no text.`

// Options configures the Vertex engine.
type Options struct {
	ProjectID string
	Region    string
	// Model is the generative model name, e.g. "gemini-1.5-pro".
	Model string
}

// Engine sends page images to a Gemini vision model and returns the plain
// text it extracts.
type Engine struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// New creates the client and model handle. Client construction performs the
// reachability probe; failures are reported as EngineUnavailable.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.ProjectID == "" || opts.Region == "" {
		return nil, fmt.Errorf("vertex engine: projectID and region cannot be empty")
	}
	if opts.Model == "" {
		opts.Model = "gemini-1.5-pro"
	}

	client, err := genai.NewClient(ctx, opts.ProjectID, opts.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %v: %w", err, domain.ErrEngineUnavailable)
	}

	model := client.GenerativeModel(opts.Model)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	return &Engine{client: client, model: model, name: opts.Model}, nil
}

func (e *Engine) Name() string { return "vertex-gemini" }

func (e *Engine) Version() string { return e.name }

// SupportsFileType reports true for every upload format: the loader hands
// the engine decoded rasters, so support does not depend on the container.
func (e *Engine) SupportsFileType(fileType domain.FileType) bool {
	return fileType.Valid()
}

func (e *Engine) ProcessImage(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode page image: %w", err)
	}

	resp, err := e.model.GenerateContent(ctx,
		genai.ImageData("png", buf.Bytes()),
		genai.Text(extractionPrompt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	return extractText(resp), nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
