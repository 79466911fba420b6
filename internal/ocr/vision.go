package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/taperedplus/design-intake/pkg/llm"
)

// ImageDescriber turns a raster image into descriptive text.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, data []byte, filename string) (string, error)
}

// imageMimeTypes are the formats the vision providers accept.
var imageMimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// VisionDescriber adapts a vision-capable LLM into an ImageDescriber,
// mapping filenames to MIME types. Formats the providers reject are
// reported in the returned text, not as an error, so the rest of the
// email still assembles.
type VisionDescriber struct {
	vision llm.Vision
}

// NewVisionDescriber creates a VisionDescriber.
func NewVisionDescriber(v llm.Vision) *VisionDescriber {
	return &VisionDescriber{vision: v}
}

func (d *VisionDescriber) DescribeImage(ctx context.Context, data []byte, filename string) (string, error) {
	ext := strings.ToLower(filename)
	if i := strings.LastIndex(ext, "."); i >= 0 {
		ext = ext[i+1:]
	}
	mimeType, ok := imageMimeTypes[ext]
	if !ok {
		return fmt.Sprintf("Unsupported image format: %s. Only jpg, jpeg, png, webp are supported.", ext), nil
	}
	return d.vision.DescribeImage(ctx, data, mimeType)
}
