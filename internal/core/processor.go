package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/entity"
	"github.com/graceskyliz/ocr3/internal/extract"
	"github.com/graceskyliz/ocr3/internal/repository"
	"github.com/graceskyliz/ocr3/internal/storage"
)

// Result is what a successful Process call reports back.
type Result struct {
	DocumentID   uuid.UUID              `json:"document_id"`
	InvoiceID    uuid.UUID              `json:"invoice_id"`
	Engine       string                 `json:"engine"`
	DocumentKind constants.DocumentKind `json:"document_kind"`
	Confidence   float64                `json:"confidence"`
}

// Processor coordinates fetch -> engine dispatch -> extraction -> materialization
// for one document at a time.
type Processor struct {
	logger       *slog.Logger
	documents    repository.DocumentRepository
	extractions  repository.ExtractionRepository
	materializer repository.Materializer
	fetcher      storage.Fetcher
	router       extract.Router
	engines      extract.Engines
	timeout      time.Duration
}

func NewProcessor(
	logger *slog.Logger,
	documents repository.DocumentRepository,
	extractions repository.ExtractionRepository,
	materializer repository.Materializer,
	fetcher storage.Fetcher,
	router extract.Router,
	engines extract.Engines,
	timeout time.Duration,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:       logger,
		documents:    documents,
		extractions:  extractions,
		materializer: materializer,
		fetcher:      fetcher,
		router:       router,
		engines:      engines,
		timeout:      timeout,
	}
}

// Process extracts one registered document and materializes the result.
// Every attempt on an existing document leaves an extractions row and moves the
// document to processed or failed. Reprocessing appends a new invoice.
func (p *Processor) Process(ctx context.Context, documentID uuid.UUID) (Result, error) {
	start := time.Now()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	ctx = common.WithDocumentID(ctx, documentID.String())

	doc, err := p.documents.Get(ctx, documentID)
	if err != nil {
		p.logger.Error("processor.document.failed", "document_id", documentID, "err", err)
		return Result{}, err
	}
	ctx = common.WithTenantID(ctx, doc.TenantID)

	p.logger.Debug("processor.process.start",
		"document_id", doc.ID,
		"tenant_id", doc.TenantID,
		"filename", doc.Filename,
		"declared_kind", doc.DeclaredKind,
	)

	out := p.run(ctx, doc)
	p.record(ctx, doc, out)

	if out.err != nil {
		p.logger.Error("processor.process.failed",
			"document_id", doc.ID,
			"tenant_id", doc.TenantID,
			"engine", out.engine,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"err", out.err,
		)
		return Result{}, out.err
	}

	res := Result{
		DocumentID:   doc.ID,
		InvoiceID:    out.invoiceID,
		Engine:       out.engine,
		DocumentKind: out.parsed.DocumentKind,
		Confidence:   out.parsed.ConfidenceValue(),
	}
	p.logger.Info("processor.process.ok",
		"document_id", doc.ID,
		"tenant_id", doc.TenantID,
		"invoice_id", res.InvoiceID,
		"engine", res.Engine,
		"kind", res.DocumentKind,
		"confidence", res.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

type outcome struct {
	engine    string
	parsed    entity.ParsedDocument
	invoiceID uuid.UUID
	extracted bool
	err       error
}

func (p *Processor) run(ctx context.Context, doc *entity.Document) (out outcome) {
	fetched, err := p.fetcher.Fetch(ctx, doc.StorageKey)
	if err != nil {
		out.err = err
		return out
	}
	defer fetched.Cleanup()

	src := extract.Source{
		Path:           fetched.Path,
		Filename:       doc.Filename,
		MimeType:       doc.Mime,
		DeclaredKind:   constants.ParseKind(doc.DeclaredKind),
		DeclaredFormat: constants.ParseFormat(doc.DeclaredFormat),
	}
	route, err := p.router.Resolve(src)
	if err != nil {
		out.err = err
		return out
	}
	out.engine = route.Engine.String()

	eng, err := p.engines.For(route)
	if err != nil {
		out.err = err
		return out
	}
	out.engine = eng.Name()
	p.logger.Debug("processor.route",
		"document_id", doc.ID,
		"engine", out.engine,
		"kind", route.Kind,
		"reason", route.Reason,
	)

	parsed, err := eng.Extract(ctx, src, route.Kind)
	if err != nil {
		out.err = err
		return out
	}
	if parsed.Engine != "" {
		out.engine = parsed.Engine
	}
	out.parsed = parsed
	out.extracted = true

	out.invoiceID, out.err = p.materializer.Materialize(ctx, doc.TenantID, doc.ID, out.engine, parsed)
	return out
}

// record writes the audit row and the status transition. It outlives the
// per-process deadline so a timed-out run is still recorded.
func (p *Processor) record(ctx context.Context, doc *entity.Document, out outcome) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	ex := &entity.Extraction{
		DocumentID: doc.ID,
		Engine:     out.engine,
		Status:     string(constants.ExtractionStatusOK),
	}
	if ex.Engine == "" {
		ex.Engine = extract.EngineUnknown.String()
	}
	if out.extracted {
		if payload, err := json.Marshal(out.parsed); err == nil {
			ex.Payload = payload
		}
		ex.Confidence = out.parsed.Confidence
	}
	status := constants.DocumentStatusProcessed
	if out.err != nil {
		ex.Status = string(constants.ExtractionStatusFailed)
		ex.ErrorMessage = out.err.Error()
		status = constants.DocumentStatusFailed
	} else {
		id := out.invoiceID
		ex.InvoiceID = &id
	}

	if err := p.extractions.Create(ctx, ex); err != nil {
		p.logger.Warn("processor.audit.failed", "document_id", doc.ID, "err", err)
	}
	if err := p.documents.SetStatus(ctx, doc.ID, status); err != nil {
		p.logger.Warn("processor.status.failed", "document_id", doc.ID, "status", status, "err", err)
	}
}
