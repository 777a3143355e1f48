package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/core/confidence"
	"github.com/graceskyliz/ocr3/internal/core/detect"
	"github.com/graceskyliz/ocr3/internal/core/normalize"
	"github.com/graceskyliz/ocr3/internal/entity"
)

// PatternEngine recognizes text locally and runs the field detectors over it.
type PatternEngine struct {
	rec    TextRecognizer
	logger *slog.Logger
}

func NewPatternEngine(rec TextRecognizer, logger *slog.Logger) *PatternEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &PatternEngine{rec: rec, logger: logger}
}

func (e *PatternEngine) Name() string { return constants.EnginePattern }

func (e *PatternEngine) Extract(ctx context.Context, src Source, kind constants.DocumentKind) (entity.ParsedDocument, error) {
	start := time.Now()
	res, err := e.rec.Recognize(ctx, src.Path)
	if err != nil {
		if isTyped(err) {
			return entity.ParsedDocument{}, err
		}
		return entity.ParsedDocument{}, common.Backend(e.Name(), err)
	}

	text := normalize.Text(res.Text)
	if kind == "" {
		kind = detect.Kind(text)
	}
	doc := FromText(text, kind)
	doc.Engine = e.Name()

	e.logger.Info("pattern.extract.ok",
		"file", src.Filename,
		"method", res.Method,
		"pages", res.Pages,
		"kind", kind,
		"confidence", doc.ConfidenceValue(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// FromText builds the canonical document from recognized text. The result has
// no engine name set.
func FromText(text string, kind constants.DocumentKind) entity.ParsedDocument {
	f := detect.Detect(text, kind)
	score := confidence.Text(f.Present())

	doc := entity.ParsedDocument{
		Provider: entity.ProviderFields{
			TaxID:     entity.StrPtr(f.TaxID),
			LegalName: entity.StrPtr(f.LegalName),
		},
		Invoice: entity.InvoiceFields{
			Series:    entity.StrPtr(f.Number.Series),
			Number:    entity.StrPtr(f.Number.Number),
			IssueDate: f.IssueDate,
			Currency:  entity.StrPtr(f.Currency),
			Total:     f.Total,
		},
		Items:        []entity.ItemFields{},
		DocumentKind: kind,
		Confidence:   &score,
		RawText:      normalize.Truncate(text, constants.RawTextLimitOCR),
	}
	return doc
}
