package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/entity"
)

// InvoiceFilter narrows List; zero dates are open bounds.
type InvoiceFilter struct {
	TenantID string
	From     time.Time
	To       time.Time
}

type InvoiceRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	List(ctx context.Context, f InvoiceFilter) ([]*entity.Invoice, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.Invoice, error)
	Items(ctx context.Context, invoiceID uuid.UUID) ([]entity.InvoiceItem, error)
}

type invoiceRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewInvoiceRepository(db *DB, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepo{db: db.SQL, logger: logger}
}

const invoiceSelect = `
	SELECT i.id, i.tenant_id, i.provider_id, i.document_id, i.document_kind, i.series, i.number,
	       i.issue_date, i.due_date, i.currency, i.subtotal, i.tax, i.total, i.status, i.metadata, i.created_at,
	       p.tax_id, p.legal_name
	FROM invoices i
	LEFT JOIN providers p ON p.id = i.provider_id`

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var (
		inv                            entity.Invoice
		providerID                     uuid.NullUUID
		kind, series, number, currency sql.NullString
		issue, due                     any
		subtotal, tax, total           decimal.NullDecimal
		metadata                       []byte
		pTaxID, pName                  sql.NullString
	)
	err := row.Scan(&inv.ID, &inv.TenantID, &providerID, &inv.DocumentID, &kind, &series, &number,
		&issue, &due, &currency, &subtotal, &tax, &total, &inv.Status, &metadata, &inv.CreatedAt,
		&pTaxID, &pName)
	if err != nil {
		return nil, err
	}
	if providerID.Valid {
		id := providerID.UUID
		inv.ProviderID = &id
	}
	inv.DocumentKind = kind.String
	inv.Series, inv.Number, inv.Currency = strPtr(series), strPtr(number), strPtr(currency)
	if inv.IssueDate, err = datePtr(issue); err != nil {
		return nil, err
	}
	if inv.DueDate, err = datePtr(due); err != nil {
		return nil, err
	}
	inv.Subtotal, inv.Tax, inv.Total = decPtr(subtotal), decPtr(tax), decPtr(total)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &inv.Metadata); err != nil {
			return nil, err
		}
	}
	inv.ProviderTaxID, inv.ProviderLegalName = strPtr(pTaxID), strPtr(pName)
	return &inv, nil
}

func (r *invoiceRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRowContext(ctx, invoiceSelect+` WHERE i.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("invoice %s", id)
	}
	if err != nil {
		r.logger.Error("failed to get invoice", "invoice_id", id, "error", err)
		return nil, common.Database("get invoice", err)
	}
	return inv, nil
}

func (r *invoiceRepo) List(ctx context.Context, f InvoiceFilter) ([]*entity.Invoice, error) {
	q := invoiceSelect + ` WHERE i.tenant_id = $1`
	args := []any{f.TenantID}
	if !f.From.IsZero() {
		args = append(args, f.From.Format(dateLayout))
		q += ` AND i.issue_date >= $2`
	}
	if !f.To.IsZero() {
		args = append(args, f.To.Format(dateLayout))
		q += ` AND i.issue_date <= $` + strconv.Itoa(len(args))
	}
	q += ` ORDER BY i.issue_date, i.created_at, i.id`
	return r.list(ctx, q, args...)
}

func (r *invoiceRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.Invoice, error) {
	return r.list(ctx, invoiceSelect+` WHERE i.document_id = $1 ORDER BY i.created_at, i.id`, documentID)
}

func (r *invoiceRepo) list(ctx context.Context, q string, args ...any) ([]*entity.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		r.logger.Error("failed to list invoices", "error", err)
		return nil, common.Database("list invoices", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, common.Database("scan invoice", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Database("list invoices", err)
	}
	return out, nil
}

func (r *invoiceRepo) Items(ctx context.Context, invoiceID uuid.UUID) ([]entity.InvoiceItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, invoice_id, position, description, quantity, unit_price, tax, total
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, invoiceID)
	if err != nil {
		r.logger.Error("failed to list invoice items", "invoice_id", invoiceID, "error", err)
		return nil, common.Database("list invoice items", err)
	}
	defer func() { _ = rows.Close() }()

	var out []entity.InvoiceItem
	for rows.Next() {
		var (
			it                     entity.InvoiceItem
			qty, price, tax, total decimal.NullDecimal
		)
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Position, &it.Description, &qty, &price, &tax, &total); err != nil {
			return nil, common.Database("scan invoice item", err)
		}
		it.Quantity, it.UnitPrice, it.Tax, it.Total = decPtr(qty), decPtr(price), decPtr(tax), decPtr(total)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Database("list invoice items", err)
	}
	return out, nil
}

func insertInvoice(ctx context.Context, c entConn, inv *entity.Invoice) error {
	meta, err := json.Marshal(inv.Metadata)
	if err != nil {
		return err
	}
	var providerID any
	if inv.ProviderID != nil {
		providerID = *inv.ProviderID
	}
	return c.run(ctx, c.b.Insert("invoices").
		Columns("id", "tenant_id", "provider_id", "document_id", "document_kind", "series", "number",
			"issue_date", "due_date", "currency", "subtotal", "tax", "total", "status", "metadata", "created_at").
		Values(inv.ID, inv.TenantID, providerID, inv.DocumentID, emptyAsNull(inv.DocumentKind),
			nullString(inv.Series), nullString(inv.Number), nullDate(inv.IssueDate), nullDate(inv.DueDate),
			nullString(inv.Currency), nullDecimal(inv.Subtotal), nullDecimal(inv.Tax), nullDecimal(inv.Total),
			inv.Status, string(meta), inv.CreatedAt))
}

func insertItem(ctx context.Context, c entConn, it entity.InvoiceItem) error {
	return c.run(ctx, c.b.Insert("invoice_items").
		Columns("id", "invoice_id", "position", "description", "quantity", "unit_price", "tax", "total").
		Values(it.ID, it.InvoiceID, it.Position, it.Description,
			nullDecimal(it.Quantity), nullDecimal(it.UnitPrice), nullDecimal(it.Tax), nullDecimal(it.Total)))
}
