package llm

import (
	"context"

	"github.com/graceskyliz/ocr3/constants"
)

// VisionRequest is a single page image handed to a vision model.
type VisionRequest struct {
	Kind     constants.DocumentKind
	FilePath string // diagnostics only
	MimeType string // image/png, image/jpeg or image/webp
	Data     []byte
}

// VisionBackend asks a model to emit the canonical document as JSON.
// Implementations make a single attempt; callers own retries.
type VisionBackend interface {
	Name() string
	ExtractDocument(ctx context.Context, req VisionRequest) ([]byte, error)
}
