package llm

import (
	"context"
	"encoding/base64"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultMaxTokens = 4096

// anthropicClient implements Client on the official anthropic-sdk-go.
type anthropicClient struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewAnthropic creates an Anthropic-backed Client.
func NewAnthropic(apiKey, model string, maxTokens int64) Client {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &anthropicClient{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
	}
}

// DescribeImage sends the image as a base64 block with the describe prompt.
func (c *anthropicClient) DescribeImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(
				sdk.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(data)),
				sdk.NewTextBlock(describeImagePrompt),
			),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: anthropic describe image")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func (c *anthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: anthropic create message")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	zap.L().Debug("llm generation complete",
		zap.String("provider", "anthropic"),
		zap.String("model", c.model),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)

	return sb.String(), nil
}
