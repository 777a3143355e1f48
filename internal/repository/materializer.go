package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/entity"
)

// Materializer persists a parsed document as provider, invoice and items.
type Materializer interface {
	Materialize(ctx context.Context, tenantID string, documentID uuid.UUID, engine string, parsed entity.ParsedDocument) (uuid.UUID, error)
}

type materializer struct {
	db     *DB
	logger *slog.Logger
}

func NewMaterializer(db *DB, logger *slog.Logger) Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &materializer{db: db, logger: logger}
}

// Materialize runs in one transaction: the document must exist for the tenant,
// the provider is found or created, then a new invoice and its items are
// inserted in extraction order. Any failure rolls everything back.
func (m *materializer) Materialize(ctx context.Context, tenantID string, documentID uuid.UUID, engine string, parsed entity.ParsedDocument) (uuid.UUID, error) {
	start := time.Now()
	if engine == "" {
		engine = parsed.Engine
	}
	if err := parsed.Validate(); err != nil {
		m.logger.Error("materialize.invalid_document", "document_id", documentID, "error", err)
		return uuid.Nil, err
	}

	tx, err := m.db.Driver.Tx(ctx)
	if err != nil {
		return uuid.Nil, common.Database("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				m.logger.Error("materialize.rollback_failed", "document_id", documentID, "error", rbErr)
			}
		}
	}()

	c := m.db.conn(tx)
	_, found, err := c.firstID(ctx, c.b.Select("id").From(c.b.Table("documents")).
		Where(entsql.And(entsql.EQ("id", documentID), entsql.EQ("tenant_id", tenantID))))
	if err != nil {
		return uuid.Nil, common.Database("lookup document", err)
	}
	if !found {
		return uuid.Nil, common.NotFound("document %s for tenant %s", documentID, tenantID)
	}

	providerID, err := m.resolveProvider(ctx, c, tenantID, parsed.Provider)
	if err != nil {
		return uuid.Nil, common.Database("resolve provider", err)
	}

	inv := &entity.Invoice{
		ID:           uuid.New(),
		TenantID:     tenantID,
		ProviderID:   providerID,
		DocumentID:   documentID,
		DocumentKind: string(parsed.DocumentKind),
		Series:       parsed.Invoice.Series,
		Number:       parsed.Invoice.Number,
		IssueDate:    parsed.Invoice.IssueDate,
		DueDate:      parsed.Invoice.DueDate,
		Currency:     parsed.Invoice.Currency,
		Subtotal:     parsed.Invoice.Subtotal,
		Tax:          parsed.Invoice.Tax,
		Total:        parsed.Invoice.Total,
		Status:       string(constants.InvoiceStatusRegistered),
		Metadata:     entity.InvoiceMetadata{Engine: engine, Confidence: parsed.Confidence},
		CreatedAt:    time.Now().UTC(),
	}
	if err := insertInvoice(ctx, c, inv); err != nil {
		return uuid.Nil, common.Database("insert invoice", err)
	}

	for i, it := range parsed.Items {
		item := entity.InvoiceItem{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			Position:    i,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Tax:         it.Tax,
			Total:       it.Total,
		}
		if err := insertItem(ctx, c, item); err != nil {
			return uuid.Nil, common.Database("insert invoice item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, common.Database("commit", err)
	}
	committed = true

	m.logger.Info("materialize.ok",
		"tenant_id", tenantID,
		"document_id", documentID,
		"invoice_id", inv.ID,
		"provider_id", providerID,
		"engine", engine,
		"items", len(parsed.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return inv.ID, nil
}

// resolveProvider returns nil when the document names no provider at all.
func (m *materializer) resolveProvider(ctx context.Context, c entConn, tenantID string, f entity.ProviderFields) (*uuid.UUID, error) {
	if f.TaxID == nil && f.LegalName == nil {
		return nil, nil
	}
	id, found, err := lookupProviderID(ctx, c, tenantID, f)
	if err != nil {
		return nil, err
	}
	if found {
		m.logger.Debug("materialize.provider.found", "tenant_id", tenantID, "provider_id", id)
		return &id, nil
	}
	id, err = insertProviderOrLookup(ctx, c, m.logger, tenantID, f)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
