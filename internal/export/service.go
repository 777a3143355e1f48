// Package export renders materialized invoices as spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/graceskyliz/ocr3/internal/entity"
	"github.com/graceskyliz/ocr3/internal/repository"
)

const (
	invoicesSheet  = "Invoices"
	providersSheet = "Providers"
)

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	invoices  repository.InvoiceRepository
	providers repository.ProviderRepository
	logger    *slog.Logger
}

func NewService(invoices repository.InvoiceRepository, providers repository.ProviderRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{invoices: invoices, providers: providers, logger: logger}
}

// ExportInvoicesXLSX returns an XLSX workbook (as bytes) for the tenant and issue-date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all invoices of the tenant.
func (s *Service) ExportInvoicesXLSX(ctx context.Context, tenantID string, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	filter := repository.InvoiceFilter{TenantID: tenantID}
	if from != nil {
		filter.From = dateOnly(*from)
		if to == nil {
			filter.To = dateOnly(time.Now().UTC())
		}
	}
	if to != nil {
		filter.To = dateOnly(*to)
	}

	invs, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	provs, err := s.providers.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query providers: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", invoicesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(providersSheet); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(invoicesSheet)
	f.SetActiveSheet(idx)

	if err := writeInvoices(f, invs); err != nil {
		return nil, err
	}
	if err := writeProviders(f, provs); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"tenant_id", tenantID,
		"invoices", len(invs),
		"providers", len(provs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

var invoiceHeaders = []any{
	"Issue Date", "Due Date", "Kind", "Series", "Number",
	"Provider RUC", "Provider Name", "Currency",
	"Subtotal", "Tax", "Total",
	"Engine", "Confidence", "Status", "Document ID", "Invoice ID",
}

func writeInvoices(f *excelize.File, invs []*entity.Invoice) error {
	if err := f.SetSheetRow(invoicesSheet, "A1", &invoiceHeaders); err != nil {
		return err
	}
	for i, inv := range invs {
		row := []any{
			date(inv.IssueDate), date(inv.DueDate), inv.DocumentKind, str(inv.Series), str(inv.Number),
			str(inv.ProviderTaxID), str(inv.ProviderLegalName), str(inv.Currency),
			amount(inv.Subtotal), amount(inv.Tax), amount(inv.Total),
			inv.Metadata.Engine, confidence(inv.Metadata.Confidence), inv.Status,
			inv.DocumentID.String(), inv.ID.String(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(invoicesSheet, cell, &row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(invoicesSheet, "A", "B", 12) // dates
	_ = f.SetColWidth(invoicesSheet, "F", "F", 14) // ruc
	_ = f.SetColWidth(invoicesSheet, "G", "G", 36) // name
	_ = f.SetColWidth(invoicesSheet, "I", "K", 14) // amounts
	_ = f.SetColWidth(invoicesSheet, "L", "L", 18) // engine
	_ = f.SetColWidth(invoicesSheet, "O", "P", 38) // ids
	return nil
}

var providerHeaders = []any{"RUC", "Legal Name", "Address", "State", "Provider ID"}

func writeProviders(f *excelize.File, provs []*entity.Provider) error {
	if err := f.SetSheetRow(providersSheet, "A1", &providerHeaders); err != nil {
		return err
	}
	for i, p := range provs {
		row := []any{str(p.TaxID), str(p.LegalName), truncate(str(p.Address), 140), p.State, p.ID.String()}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(providersSheet, cell, &row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(providersSheet, "A", "A", 14)
	_ = f.SetColWidth(providersSheet, "B", "C", 40)
	_ = f.SetColWidth(providersSheet, "E", "E", 38)
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// amount keeps blank cells blank; present values are written as numbers.
func amount(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}

func confidence(c *float64) any {
	if c == nil {
		return ""
	}
	return *c
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
