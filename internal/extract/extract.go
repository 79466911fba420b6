package extract

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/taperedplus/design-intake/internal/model"
	"github.com/taperedplus/design-intake/internal/resilience"
	"github.com/taperedplus/design-intake/pkg/llm"
)

// Extractor asks an LLM for the enquiry parameters and post-processes
// the answer into a canonical ParameterSet.
type Extractor struct {
	client llm.Client
	retry  resilience.RetryConfig
}

func New(client llm.Client) *Extractor {
	return &Extractor{
		client: client,
		retry: resilience.RetryConfig{
			OnRetry: resilience.RetryLogger("llm", "generate"),
		},
	}
}

// Parameters extracts the sixteen canonical parameters from allText.
// forceType, when set, pins Reason for Change instead of letting the
// model infer it.
func (e *Extractor) Parameters(ctx context.Context, allText string, forceType model.Classification) (model.ParameterSet, error) {
	prompt := buildParameterPrompt(allText, forceType)

	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (string, error) {
		return e.client.Generate(ctx, prompt)
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: query parameters")
	}

	params := parseResponse(resp)
	overrideFromHeader(params, allText)
	if forceType == model.Amendment || forceType == model.NewEnquiry {
		params["Reason for Change"] = string(forceType)
	}

	zap.L().Debug("parameters extracted",
		zap.String("subject", params["Email Subject"]),
		zap.String("reason", params["Reason for Change"]))
	return params, nil
}

// ProjectName extracts just the drawing title, used as the Monday.com
// search term when classifying the enquiry.
func (e *Extractor) ProjectName(ctx context.Context, allText string) (string, error) {
	prompt := buildProjectNamePrompt(allText)

	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (string, error) {
		return e.client.Generate(ctx, prompt)
	})
	if err != nil {
		return "", eris.Wrap(err, "extract: query project name")
	}
	return strings.TrimSpace(resp), nil
}
