package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// geminiClient implements Client on google.golang.org/genai.
type geminiClient struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed Client.
func NewGemini(ctx context.Context, apiKey, model string) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("llm: gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, eris.Wrap(err, "llm: create gemini client")
	}
	return &geminiClient{client: client, model: model}, nil
}

// DescribeImage sends the image bytes inline with the describe prompt.
func (c *geminiClient) DescribeImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText(describeImagePrompt),
	}, genai.RoleUser)

	resp, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{content}, nil)
	if err != nil {
		return "", eris.Wrap(err, "llm: gemini describe image")
	}
	return resp.Text(), nil
}

func (c *geminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", eris.Wrap(err, "llm: gemini generate content")
	}

	text := resp.Text()

	zap.L().Debug("llm generation complete",
		zap.String("provider", "gemini"),
		zap.String("model", c.model),
		zap.Int("chars", len(text)),
	)

	return text, nil
}
