// Package chat answers user questions about a processed enquiry using
// the extracted parameters as grounding context.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/taperedplus/design-intake/internal/model"
	"github.com/taperedplus/design-intake/internal/resilience"
	"github.com/taperedplus/design-intake/pkg/llm"
)

// RawCommand echoes the combined extracted text instead of asking the
// model.
const RawCommand = "/raw"

// Response is one assistant reply. RawText is set only for RawCommand.
type Response struct {
	Text    string `json:"response"`
	RawText string `json:"raw_text,omitempty"`
}

// Assistant generates parameter-aware replies.
type Assistant struct {
	client llm.Client
	retry  resilience.RetryConfig
}

func New(client llm.Client) *Assistant {
	return &Assistant{
		client: client,
		retry: resilience.RetryConfig{
			OnRetry: resilience.RetryLogger("llm", "chat"),
		},
	}
}

// Respond answers message in the context of the processed enquiry.
// Without parameters there is nothing to talk about, so the user is
// pointed back at the upload step.
func (a *Assistant) Respond(ctx context.Context, message string, params model.ParameterSet, extractedText string) (*Response, error) {
	if strings.EqualFold(strings.TrimSpace(message), RawCommand) && extractedText != "" {
		return &Response{Text: "Raw extracted text:", RawText: extractedText}, nil
	}
	if len(params) == 0 {
		return &Response{Text: "Please process files first to extract parameters."}, nil
	}

	prompt := buildPrompt(message, params, extractedText)
	text, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (string, error) {
		return a.client.Generate(ctx, prompt)
	})
	if err != nil {
		return nil, eris.Wrap(err, "chat: generate response")
	}
	return &Response{Text: strings.TrimSpace(text)}, nil
}

func buildPrompt(message string, params model.ParameterSet, extractedText string) string {
	var b strings.Builder
	b.WriteString("You are a roofing-design assistant. Use the parameters below when answering; ")
	b.WriteString("ask clarifying questions only when necessary.\n\n")
	for _, key := range model.ParameterKeys {
		if v, ok := params[key]; ok {
			fmt.Fprintf(&b, "• **%s**: %s\n", key, v)
		}
	}
	b.WriteString("\nRaw extracted text from documents:\n")
	b.WriteString(extractedText)
	b.WriteString("\n\nUser message: ")
	b.WriteString(message)
	return b.String()
}
