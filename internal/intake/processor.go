// Package intake orchestrates the document-processing workflow: parse
// uploads, assemble the combined text, run LLM extraction, and report
// progress. One Processor serves all requests; each call works on its
// own request-scoped state.
package intake

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/taperedplus/design-intake/internal/extract"
	"github.com/taperedplus/design-intake/internal/mail"
	"github.com/taperedplus/design-intake/internal/model"
	"github.com/taperedplus/design-intake/internal/ocr"
	"github.com/taperedplus/design-intake/internal/progress"
)

// AllowedExtensions are the upload types the workflow accepts. Files
// with any other extension are silently skipped.
var AllowedExtensions = map[string]bool{
	"eml": true,
	"msg": true,
	"pdf": true,
}

// AllowedFile reports whether filename has an accepted extension.
func AllowedFile(filename string) bool {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return false
	}
	return AllowedExtensions[strings.ToLower(filename[i+1:])]
}

const blockSeparator = "=================================================="

// File is one uploaded document held in memory.
type File struct {
	Name string
	Data []byte
}

// Result is the outcome of processing one batch of uploads.
type Result struct {
	ExtractedText string             `json:"extractedText"`
	Params        model.ParameterSet `json:"params"`
	ProjectName   string             `json:"projectName"`
}

// Processor runs the intake workflow.
type Processor struct {
	extractor   *extract.Extractor
	ocr         ocr.Extractor
	images      ocr.ImageDescriber
	broker      *progress.Broker
	concurrency int
}

// NewProcessor wires the workflow. images may be nil when no vision
// provider is configured. concurrency bounds parallel PDF text
// extraction; values below 1 run sequentially.
func NewProcessor(extractor *extract.Extractor, ocrExtractor ocr.Extractor, images ocr.ImageDescriber, broker *progress.Broker, concurrency int) *Processor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Processor{
		extractor:   extractor,
		ocr:         ocrExtractor,
		images:      images,
		broker:      broker,
		concurrency: concurrency,
	}
}

func (p *Processor) publish(jobID, stage, currentFile string, percent int, message string) {
	if p.broker == nil || jobID == "" {
		return
	}
	p.broker.Publish(progress.Event{
		JobID:       jobID,
		Stage:       stage,
		CurrentFile: currentFile,
		Progress:    percent,
		Message:     message,
	})
}

// ProcessFiles runs the full workflow over one upload batch. jobID may
// be empty for synchronous callers that do not track progress.
func (p *Processor) ProcessFiles(ctx context.Context, jobID string, files []File) (*Result, error) {
	p.publish(jobID, progress.StageInitializing, "", 0, "Starting file processing")

	var accepted []File
	for _, f := range files {
		if AllowedFile(f.Name) {
			accepted = append(accepted, f)
		} else {
			zap.L().Warn("skipping file with unsupported extension", zap.String("filename", f.Name))
		}
	}
	if len(accepted) == 0 {
		err := eris.New("intake: no processable files in upload")
		p.publish(jobID, progress.StageError, "", 0, err.Error())
		return nil, err
	}

	p.publish(jobID, progress.StageProcessing, "", 10, fmt.Sprintf("Processing %d files", len(accepted)))

	blocks := make([]string, len(accepted))
	var (
		mu           sync.Mutex
		processed    int
		projectEmail string // assembled text of the first email, drives project-name extraction
	)
	advance := func(stage, filename string) {
		mu.Lock()
		processed++
		pct := progress.FilePercent(processed, len(accepted))
		mu.Unlock()
		p.publish(jobID, stage, filename, pct, "Processed "+filename)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, f := range accepted {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".pdf") {
			continue
		}
		g.Go(func() error {
			text, err := p.ocr.ExtractText(gctx, f.Data, f.Name)
			if err != nil {
				return eris.Wrapf(err, "intake: extract pdf %s", f.Name)
			}
			blocks[i] = fmt.Sprintf("\n\nPDF FILE: %s\n%s\n%s\n", f.Name, text, blockSeparator)
			advance(progress.StageProcessingPDFs, f.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.publish(jobID, progress.StageError, "", 0, err.Error())
		return nil, err
	}

	for i, f := range accepted {
		lower := strings.ToLower(f.Name)
		switch {
		case strings.HasSuffix(lower, ".eml"):
			email, err := mail.ParseEML(f.Data)
			if err != nil {
				// One unreadable email must not discard the rest of the
				// batch; note the failure in the combined text and move on.
				zap.L().Warn("email parse failed", zap.String("filename", f.Name), zap.Error(err))
				blocks[i] = fmt.Sprintf("\n\nEMAIL FILE: %s\n[Error processing email: %v]\n%s\n",
					f.Name, err, blockSeparator)
				advance(progress.StageProcessingEmails, f.Name)
				continue
			}
			assembled := mail.AssembleText(ctx, email, p.ocr, p.images)
			if projectEmail == "" {
				projectEmail = assembled
			}
			blocks[i] = fmt.Sprintf("\n\nEMAIL FILE: %s\n%s\n%s\n", f.Name, assembled, blockSeparator)
			advance(progress.StageProcessingEmails, f.Name)
		case strings.HasSuffix(lower, ".msg"):
			// No .msg parser; note the failure in the combined text so the
			// batch still completes.
			blocks[i] = fmt.Sprintf("\n\nOUTLOOK EMAIL FILE: %s\n[Error: %s]\n%s\n",
				f.Name, mail.ErrMsgUnsupported.Error(), blockSeparator)
			advance(progress.StageProcessingEmails, f.Name)
		}
	}

	allText := strings.Join(blocks, "")

	p.publish(jobID, progress.StageExtracting, "", 85, "Analyzing content with AI")

	params, err := p.extractor.Parameters(ctx, allText, "")
	if err != nil {
		p.publish(jobID, progress.StageError, "", 0, err.Error())
		return nil, err
	}
	// Fresh uploads with no stated reason default to a new enquiry.
	if model.IsMissing(params["Reason for Change"]) {
		params["Reason for Change"] = string(model.NewEnquiry)
	}

	p.publish(jobID, progress.StageFinalizing, "", 95, "Finalizing results")

	var projectName string
	if projectEmail != "" {
		projectName, err = p.extractor.ProjectName(ctx, projectEmail)
		if err != nil {
			// Project name only drives the board search; the parameter
			// result is still useful without it.
			zap.L().Warn("project name extraction failed", zap.Error(err))
		}
	}

	result := &Result{
		ExtractedText: allText,
		Params:        params,
		ProjectName:   projectName,
	}
	p.publish(jobID, progress.StageCompleted, "", 100, "Processing complete")
	return result, nil
}

// Reextract reruns parameter extraction over already-assembled text with
// the classification pinned, used when the user confirms or rejects a
// board match after the first pass.
func (p *Processor) Reextract(ctx context.Context, allText string, forceType model.Classification) (model.ParameterSet, error) {
	params, err := p.extractor.Parameters(ctx, allText, forceType)
	if err != nil {
		return nil, err
	}
	if model.IsMissing(params["Reason for Change"]) {
		params["Reason for Change"] = string(model.NewEnquiry)
	}
	return params, nil
}
