package ocr

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text using the pdftotext CLI tool. Uploaded PDFs live
// in memory, so the bytes are staged to a temp file for the duration of
// the call.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. An empty binPath means
// "pdftotext" on PATH.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText runs pdftotext -layout over the PDF bytes and returns stdout.
func (p *PdfToText) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	tmp, err := os.CreateTemp("", "intake-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "ocr: create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", eris.Wrapf(err, "ocr: stage %s", filepath.Base(filename))
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "ocr: close temp file")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", tmp.Name(), "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: pdftotext failed for %s: %s", filepath.Base(filename), stderr.String())
	}

	return stdout.String(), nil
}
