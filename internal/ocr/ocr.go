// Package ocr extracts text from PDF drawings attached to enquiries.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"
)

// Extractor extracts text content from an in-memory PDF.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte, filename string) (string, error)
}

// Config selects and configures the extraction provider.
type Config struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg Config) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
