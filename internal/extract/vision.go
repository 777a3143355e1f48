package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/core/confidence"
	"github.com/graceskyliz/ocr3/internal/core/detect"
	"github.com/graceskyliz/ocr3/internal/core/normalize"
	"github.com/graceskyliz/ocr3/internal/entity"
	"github.com/graceskyliz/ocr3/internal/llm"
)

// DefaultVisionConfidence is used when the model does not report one.
const DefaultVisionConfidence = 0.85

type VisionConfig struct {
	DefaultConfidence float64
}

// VisionEngine asks a vision model for the canonical JSON and re-parses every
// field through the normalizers.
type VisionEngine struct {
	backend  llm.VisionBackend
	renderer PageRenderer
	cfg      VisionConfig
	schema   map[string]any
	logger   *slog.Logger
}

func NewVisionEngine(backend llm.VisionBackend, renderer PageRenderer, cfg VisionConfig, logger *slog.Logger) *VisionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultConfidence <= 0 {
		cfg.DefaultConfidence = DefaultVisionConfidence
	}
	return &VisionEngine{
		backend:  backend,
		renderer: renderer,
		cfg:      cfg,
		schema:   llm.BuildDocumentJSONSchema(),
		logger:   logger,
	}
}

func (e *VisionEngine) Name() string { return e.backend.Name() }

func (e *VisionEngine) Extract(ctx context.Context, src Source, kind constants.DocumentKind) (entity.ParsedDocument, error) {
	start := time.Now()
	data, mimeType, err := e.loadImage(ctx, src)
	if err != nil {
		return entity.ParsedDocument{}, err
	}
	if kind == "" {
		kind = constants.KindInvoice
	}

	raw, err := e.backend.ExtractDocument(ctx, llm.VisionRequest{
		Kind:     kind,
		FilePath: src.Path,
		MimeType: mimeType,
		Data:     data,
	})
	if err != nil {
		e.logger.Error("vision.extract.backend_failed", "backend", e.Name(), "error", err)
		return entity.ParsedDocument{}, common.Backend(e.Name(), err)
	}

	doc, err := e.decode(raw, kind)
	if err != nil {
		fallback, ok := e.fromAnswerText(raw, kind)
		if !ok {
			return entity.ParsedDocument{}, common.Backend(e.Name(), err)
		}
		e.logger.Warn("vision.extract.text_fallback", "backend", e.Name(), "file", src.Filename, "error", err)
		doc = fallback
	}
	doc.Engine = e.Name()
	doc.RawText = normalize.Truncate(string(raw), constants.RawTextLimitVision)

	e.logger.Info("vision.extract.ok",
		"backend", e.Name(),
		"file", src.Filename,
		"kind", kind,
		"items", len(doc.Items),
		"confidence", doc.ConfidenceValue(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

func (e *VisionEngine) decode(raw []byte, kind constants.DocumentKind) (entity.ParsedDocument, error) {
	clean, err := e.sanitize(raw)
	if err != nil {
		return entity.ParsedDocument{}, err
	}
	var vd visionDoc
	if err := json.Unmarshal(clean, &vd); err != nil {
		return entity.ParsedDocument{}, fmt.Errorf("decode answer: %w", err)
	}
	return vd.toParsed(kind, e.cfg.DefaultConfidence), nil
}

// fromAnswerText runs the text detectors over an answer that is not usable
// JSON. It fails when no field at all can be found.
func (e *VisionEngine) fromAnswerText(raw []byte, kind constants.DocumentKind) (entity.ParsedDocument, bool) {
	text := normalize.Text(string(raw))
	if strings.TrimSpace(text) == "" || detect.Detect(text, kind).Present() == 0 {
		return entity.ParsedDocument{}, false
	}
	return FromText(text, kind), true
}

// sanitize normalizes the answer, validates it and, on failure, repairs optional
// offenders once before giving up.
func (e *VisionEngine) sanitize(raw []byte) ([]byte, error) {
	clean, _, err := llm.NormalizeAndSanitizeJSON(raw, e.logger)
	if err != nil {
		return nil, err
	}
	if err := llm.ValidateJSONAgainstSchema(e.schema, clean); err == nil {
		return clean, nil
	}
	repaired, changed, err := llm.SanitizeOptionalFields(clean)
	if err != nil {
		return nil, err
	}
	if err := llm.ValidateJSONAgainstSchema(e.schema, repaired); err != nil {
		e.logger.Error("vision.extract.schema_validation_failed", "error", err, "content", string(repaired))
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	e.logger.Warn("vision.extract.lenient_sanitize_applied", "changed", changed)
	return repaired, nil
}

// loadImage returns image bytes a vision backend accepts: PDFs are rendered
// (first page), PNG/JPEG/WebP pass through, other images are re-encoded as PNG.
func (e *VisionEngine) loadImage(ctx context.Context, src Source) ([]byte, string, error) {
	path := src.Path
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, "", common.NotFound("read source %s: %v", src.Filename, err)
	}

	if mt.Is("application/pdf") {
		if e.renderer == nil {
			return nil, "", common.Unsupported("vision engine cannot render PDF %s", src.Filename)
		}
		png, cleanup, err := e.renderer.RenderPage(ctx, path, 1)
		if err != nil {
			return nil, "", common.Backend(e.Name(), fmt.Errorf("render pdf: %w", err))
		}
		defer cleanup()
		b, err := os.ReadFile(png)
		if err != nil {
			return nil, "", err
		}
		return b, "image/png", nil
	}

	switch mt.String() {
	case "image/png", "image/jpeg", "image/webp":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, "", err
		}
		return b, mt.String(), nil
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, "", common.Unsupported("vision engine cannot read %s (%s)", src.Filename, mt.String())
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", common.Unsupported("decode %s: %v", src.Filename, err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, "", fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}

// visionDoc mirrors the sanitized answer; every value is still untrusted text.
type visionDoc struct {
	Provider struct {
		TaxID     string `json:"tax_id"`
		LegalName string `json:"legal_name"`
		Address   string `json:"address"`
	} `json:"provider"`
	Invoice struct {
		Series    string `json:"series"`
		Number    string `json:"number"`
		IssueDate string `json:"issue_date"`
		DueDate   string `json:"due_date"`
		Currency  string `json:"currency"`
		Subtotal  string `json:"subtotal"`
		Tax       string `json:"tax"`
		Total     string `json:"total"`
	} `json:"invoice"`
	Items []struct {
		Description string `json:"description"`
		Quantity    string `json:"quantity"`
		UnitPrice   string `json:"unit_price"`
		Tax         string `json:"tax"`
		Total       string `json:"total"`
	} `json:"items"`
	Confidence *float64 `json:"confidence"`
}

func (v visionDoc) toParsed(kind constants.DocumentKind, fallback float64) entity.ParsedDocument {
	conf := confidence.Model(v.Confidence, fallback)
	doc := entity.ParsedDocument{
		Provider: entity.ProviderFields{
			LegalName: entity.StrPtr(strings.TrimSpace(v.Provider.LegalName)),
			Address:   entity.StrPtr(strings.TrimSpace(v.Provider.Address)),
		},
		Invoice: entity.InvoiceFields{
			Series:    entity.StrPtr(strings.TrimSpace(v.Invoice.Series)),
			Number:    entity.StrPtr(strings.TrimSpace(v.Invoice.Number)),
			IssueDate: normalize.DatePtr(v.Invoice.IssueDate),
			DueDate:   normalize.DatePtr(v.Invoice.DueDate),
			Subtotal:  money(v.Invoice.Subtotal),
			Tax:       money(v.Invoice.Tax),
			Total:     money(v.Invoice.Total),
		},
		Items:        make([]entity.ItemFields, 0, len(v.Items)),
		DocumentKind: kind,
		Confidence:   &conf,
	}
	if detect.ValidTaxID(v.Provider.TaxID) {
		doc.Provider.TaxID = entity.StrPtr(v.Provider.TaxID)
	}
	doc.Invoice.Currency = cellCurrency(strings.TrimSpace(v.Invoice.Currency))
	for _, it := range v.Items {
		doc.Items = append(doc.Items, entity.ItemFields{
			Description: strings.TrimSpace(it.Description),
			Quantity:    money(it.Quantity),
			UnitPrice:   money(it.UnitPrice),
			Tax:         money(it.Tax),
			Total:       money(it.Total),
		})
	}
	return doc
}

func money(s string) *decimal.Decimal {
	return normalize.NonNegativePtr(s)
}
