package extract

import (
	"context"
	"log/slog"

	"github.com/graceskyliz/ocr3/internal/ocr"
)

// OCRAdapter exposes ocr.Extractor as a TextRecognizer and PageRenderer.
type OCRAdapter struct {
	e *ocr.Extractor
}

func NewOCRAdapter(e *ocr.Extractor, _ *slog.Logger) *OCRAdapter {
	return &OCRAdapter{e: e}
}

func (a *OCRAdapter) Recognize(ctx context.Context, path string) (TextResult, error) {
	r, err := a.e.Extract(ctx, path)
	return TextResult{
		Text:       r.Text,
		Pages:      r.Pages,
		Method:     r.Method,
		Duration:   r.Duration,
		Warnings:   r.Warnings,
		Confidence: r.Confidence,
	}, err
}

func (a *OCRAdapter) RenderPage(ctx context.Context, path string, page int) (string, func(), error) {
	return a.e.RenderPage(ctx, path, page)
}
