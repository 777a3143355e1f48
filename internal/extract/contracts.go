// Package extract turns a source file into the canonical parsed document
// through one of three interchangeable engines.
package extract

import (
	"context"
	"time"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/entity"
)

// Source is a document already fetched to local disk.
type Source struct {
	Path           string
	Filename       string
	MimeType       string
	DeclaredKind   constants.DocumentKind
	DeclaredFormat constants.Format
}

// Engine produces the canonical document. An empty kind means "detect it".
type Engine interface {
	Name() string
	Extract(ctx context.Context, src Source, kind constants.DocumentKind) (entity.ParsedDocument, error)
}

// TextRecognizer is the file -> text stage used by the pattern engine.
type TextRecognizer interface {
	Recognize(ctx context.Context, path string) (TextResult, error)
}

type TextResult struct {
	Text       string
	Pages      int
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr" | "plain-text"
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// PageRenderer rasterizes a PDF page for image-only backends.
type PageRenderer interface {
	RenderPage(ctx context.Context, path string, page int) (string, func(), error)
}
