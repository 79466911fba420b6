package mail

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/taperedplus/design-intake/internal/ocr"
)

// maxVisualItems caps how many PDFs and images a single email may feed
// into text extraction. Anything past the cap is listed but not read.
const maxVisualItems = 10

// ErrMsgUnsupported is returned for Outlook .msg uploads. The binary
// compound-document format has no parser in this service; callers
// surface the error per file so the rest of a batch still runs.
var ErrMsgUnsupported = fmt.Errorf("mail: .msg files are not supported, re-send the message as .eml or forward it as a PDF")

var errNoImageProvider = fmt.Errorf("mail: no image analysis provider configured")

type visualItem struct {
	kind       string // "pdf", "image", "inline"
	attachment Attachment
}

// AssembleText flattens a parsed email into the single text block the
// extraction prompt consumes: the raw header and body first, then the
// extracted text of each PDF and image attachment, labelled by filename.
// PDFs go through extractor; images go through images, which may be nil
// when no vision provider is configured.
func AssembleText(ctx context.Context, email *Email, extractor ocr.Extractor, images ocr.ImageDescriber) string {
	var b strings.Builder
	fmt.Fprintf(&b, "EMAIL CONTENT:\n%s\n%s\n\n", email.Header, email.Body)

	var visual []visualItem
	for _, att := range email.Attachments {
		lower := strings.ToLower(att.Filename)
		switch {
		case strings.HasSuffix(lower, ".pdf"):
			visual = append(visual, visualItem{kind: "pdf", attachment: att})
		case isImageFilename(att.Filename):
			visual = append(visual, visualItem{kind: "image", attachment: att})
		default:
			fmt.Fprintf(&b, "\nATTACHMENT (%s) [Not processed - not a PDF or image]\n\n", att.Filename)
		}
	}
	for _, img := range email.InlineImages {
		visual = append(visual, visualItem{kind: "inline", attachment: img})
	}

	processed := visual
	var skipped []visualItem
	if len(visual) > maxVisualItems {
		processed = visual[:maxVisualItems]
		skipped = visual[maxVisualItems:]
	}

	if len(skipped) > 0 {
		b.WriteString("\nNOTE: Some visual elements were not processed due to API rate limits:\n")
		for _, item := range skipped {
			fmt.Fprintf(&b, "- %s: %s\n", strings.ToUpper(item.kind), item.attachment.Filename)
		}
		b.WriteString("\n")
	}

	for _, item := range processed {
		var (
			text string
			err  error
		)
		if item.kind == "pdf" {
			text, err = extractor.ExtractText(ctx, item.attachment.Content, item.attachment.Filename)
		} else if images != nil {
			text, err = images.DescribeImage(ctx, item.attachment.Content, item.attachment.Filename)
		} else {
			err = errNoImageProvider
		}
		if err != nil {
			zap.L().Warn("attachment text extraction failed",
				zap.String("filename", item.attachment.Filename),
				zap.Error(err))
			text = fmt.Sprintf("[Error extracting text: %v]", err)
		}
		switch item.kind {
		case "pdf":
			fmt.Fprintf(&b, "\nPDF ATTACHMENT (%s):\n%s\n\n", item.attachment.Filename, text)
		case "inline":
			fmt.Fprintf(&b, "\nINLINE IMAGE (%s):\n%s\n\n", item.attachment.Filename, text)
		default:
			fmt.Fprintf(&b, "\nIMAGE ATTACHMENT (%s):\n%s\n\n", item.attachment.Filename, text)
		}
	}

	return b.String()
}
