// Package llm abstracts the text-generation service used for document
// analysis. Two providers are supported: Anthropic (default) and Google
// Gemini. The intake workflow only ever needs single-turn prompt-in,
// text-out generation, so the interface stays deliberately small.
package llm

import (
	"context"

	"github.com/rotisserie/eris"
)

// Client generates a text completion for a single prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Vision describes raster images. Both providers implement it; callers
// that only need text generation can ignore it.
type Vision interface {
	DescribeImage(ctx context.Context, data []byte, mimeType string) (string, error)
}

// describeImagePrompt asks for everything a design drawing or site photo
// might carry that the parameter extraction can use.
const describeImagePrompt = "Describe this image in detail, including any visible text, diagrams, or drawings. Extract any technical parameters or specifications you can see."

// Options configures provider construction.
type Options struct {
	Provider  string // "anthropic" or "gemini"
	APIKey    string
	Model     string
	MaxTokens int64 // anthropic only; 0 uses the default
}

// New constructs a Client for the configured provider.
func New(ctx context.Context, opts Options) (Client, error) {
	switch opts.Provider {
	case "", "anthropic":
		return NewAnthropic(opts.APIKey, opts.Model, opts.MaxTokens), nil
	case "gemini":
		return NewGemini(ctx, opts.APIKey, opts.Model)
	default:
		return nil, eris.Errorf("llm: unknown provider %q", opts.Provider)
	}
}
