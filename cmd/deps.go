package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/taperedplus/design-intake/internal/chat"
	"github.com/taperedplus/design-intake/internal/extract"
	"github.com/taperedplus/design-intake/internal/intake"
	"github.com/taperedplus/design-intake/internal/model"
	"github.com/taperedplus/design-intake/internal/ocr"
	"github.com/taperedplus/design-intake/internal/progress"
	"github.com/taperedplus/design-intake/pkg/llm"
	"github.com/taperedplus/design-intake/pkg/monday"
)

// environment bundles the wired collaborators for one command run.
type environment struct {
	processor *intake.Processor
	monday    monday.Client
	assistant *chat.Assistant
	broker    *progress.Broker
	jobs      *intake.Registry
	columns   *model.ColumnMap
	sink      *progress.NATSSink
}

// initEnvironment validates config for the run mode and builds the
// collaborators it needs. Modes without a board ("process", "chat")
// leave the Monday client nil.
func initEnvironment(ctx context.Context, mode string) (*environment, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &environment{jobs: intake.NewRegistry()}

	var sink progress.Sink
	if cfg.Progress.NATSURL != "" {
		natsSink, err := progress.ConnectSink(cfg.Progress.NATSURL)
		if err != nil {
			return nil, err
		}
		env.sink = natsSink
		sink = natsSink
	}
	env.broker = progress.NewBroker(sink)

	env.columns = model.DefaultColumnMap()
	if cfg.Monday.ColumnMapPath != "" {
		columns, err := model.LoadColumnMap(cfg.Monday.ColumnMapPath)
		if err != nil {
			return nil, err
		}
		env.columns = columns
	}

	if cfg.LLM.Key != "" {
		client, err := llm.New(ctx, llm.Options{
			Provider:  cfg.LLM.Provider,
			APIKey:    cfg.LLM.Key,
			Model:     cfg.LLM.Model,
			MaxTokens: int64(cfg.LLM.MaxTokens),
		})
		if err != nil {
			return nil, eris.Wrap(err, "init llm client")
		}

		ocrExtractor, err := ocr.NewExtractor(ocr.Config{
			Provider:      cfg.OCR.Provider,
			PdfToTextPath: cfg.OCR.PdfToTextPath,
		})
		if err != nil {
			return nil, eris.Wrap(err, "init ocr extractor")
		}

		var images ocr.ImageDescriber
		if vision, ok := client.(llm.Vision); ok {
			images = ocr.NewVisionDescriber(vision)
		}

		env.processor = intake.NewProcessor(extract.New(client), ocrExtractor, images, env.broker, cfg.Intake.PDFConcurrency)
		env.assistant = chat.New(client)
	}

	if cfg.Monday.Key != "" {
		env.monday = monday.NewClient(cfg.Monday.Key, monday.Config{
			BoardID:             cfg.Monday.BoardID,
			GroupID:             cfg.Monday.GroupID,
			StartDate:           cfg.Monday.StartDate,
			SimilarityThreshold: cfg.Monday.SimilarityThreshold,
		})
	}

	zap.L().Debug("environment initialized", zap.String("mode", mode))
	return env, nil
}

func (e *environment) Close() {
	if e.sink != nil {
		e.sink.Close()
	}
}
