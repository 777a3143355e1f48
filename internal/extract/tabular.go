package extract

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/core/confidence"
	"github.com/graceskyliz/ocr3/internal/core/detect"
	"github.com/graceskyliz/ocr3/internal/core/normalize"
	"github.com/graceskyliz/ocr3/internal/entity"
)

// Canonical column names of the tabular engine.
const (
	ColDate      = "date"
	ColCurrency  = "currency"
	ColTotal     = "total"
	ColNumber    = "number"
	ColSeries    = "series"
	ColTaxID     = "tax_id"
	ColLegalName = "legal_name"
	ColSubtotal  = "subtotal"
	ColTax       = "tax"
	ColDueDate   = "due_date"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{ColDate, ColCurrency, ColTotal}

var columnSynonyms = map[string]string{
	"fecha": ColDate, "date": ColDate, "fecha_emision": ColDate, "fecha_de_emision": ColDate, "issue_date": ColDate,
	"moneda": ColCurrency, "currency": ColCurrency, "divisa": ColCurrency,
	"total": ColTotal, "importe": ColTotal, "importe_total": ColTotal, "monto": ColTotal, "amount": ColTotal,
	"numero": ColNumber, "number": ColNumber, "nro": ColNumber, "correlativo": ColNumber,
	"serie": ColSeries, "series": ColSeries,
	"ruc": ColTaxID, "tax_id": ColTaxID,
	"razon_social": ColLegalName, "legal_name": ColLegalName, "proveedor": ColLegalName,
	"subtotal": ColSubtotal, "base_imponible": ColSubtotal,
	"igv": ColTax, "tax": ColTax, "impuesto": ColTax,
	"fecha_vencimiento": ColDueDate, "due_date": ColDueDate, "vencimiento": ColDueDate,
}

// TabularEngine reads the first data row of the first sheet into the canonical document.
type TabularEngine struct {
	logger *slog.Logger
}

func NewTabularEngine(logger *slog.Logger) *TabularEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &TabularEngine{logger: logger}
}

func (e *TabularEngine) Name() string { return constants.EngineTabular }

func (e *TabularEngine) Extract(_ context.Context, src Source, _ constants.DocumentKind) (entity.ParsedDocument, error) {
	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		return entity.ParsedDocument{}, common.Unsupported("open spreadsheet %s: %v", src.Filename, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("tabular.close_failed", "error", err)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return entity.ParsedDocument{}, common.Validation("spreadsheet %s has no sheets", src.Filename)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return entity.ParsedDocument{}, common.Validation("read sheet %q: %v", sheets[0], err)
	}

	header, data := splitRows(rows)
	cols := mapHeader(header)
	if missing := missingColumns(cols); len(missing) > 0 {
		e.logger.Warn("tabular.extract.missing_columns", "file", src.Filename, "missing", missing)
		return entity.ParsedDocument{}, common.Validation(
			"spreadsheet must contain columns %s; missing %s",
			strings.Join(RequiredColumns, ", "), strings.Join(missing, ", "))
	}
	if data == nil {
		return entity.ParsedDocument{}, common.Validation("spreadsheet %s has no data rows", src.Filename)
	}

	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(data) {
			return ""
		}
		return strings.TrimSpace(data[i])
	}

	total, ok := normalize.Decimal(cell(ColTotal))
	if !ok || total.IsNegative() {
		return entity.ParsedDocument{}, common.Validation("total %q is not a valid amount", cell(ColTotal))
	}
	conf := confidence.Tabular

	doc := entity.ParsedDocument{
		Provider: entity.ProviderFields{
			LegalName: entity.StrPtr(cell(ColLegalName)),
		},
		Invoice: entity.InvoiceFields{
			Series:    entity.StrPtr(cell(ColSeries)),
			Number:    entity.StrPtr(cell(ColNumber)),
			IssueDate: cellDate(cell(ColDate)),
			DueDate:   cellDate(cell(ColDueDate)),
			Currency:  cellCurrency(cell(ColCurrency)),
			Subtotal:  normalize.NonNegativePtr(cell(ColSubtotal)),
			Tax:       normalize.NonNegativePtr(cell(ColTax)),
			Total:     &total,
		},
		Items:        []entity.ItemFields{},
		Engine:       e.Name(),
		DocumentKind: constants.KindSpreadsheet,
		Confidence:   &conf,
	}
	if id := cell(ColTaxID); detect.ValidTaxID(id) {
		doc.Provider.TaxID = &id
	}

	e.logger.Info("tabular.extract.ok", "file", src.Filename, "sheet", sheets[0], "columns", len(cols))
	return doc, nil
}

// splitRows returns the first non-empty row as header and the next non-empty row as data.
func splitRows(rows [][]string) (header, data []string) {
	for _, r := range rows {
		if isBlankRow(r) {
			continue
		}
		if header == nil {
			header = r
			continue
		}
		return header, r
	}
	return header, nil
}

func isBlankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// mapHeader maps canonical column names to their index; the first occurrence wins.
func mapHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.Join(strings.Fields(normalize.Fold(h)), "_")
		key = strings.Trim(strings.ReplaceAll(key, ".", ""), "_")
		name, ok := columnSynonyms[key]
		if !ok {
			continue
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func missingColumns(cols map[string]int) []string {
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	sort.Strings(missing)
	return missing
}

// cellDate accepts the fixed text layouts, ISO timestamps and Excel serial dates.
func cellDate(v string) *time.Time {
	if v == "" {
		return nil
	}
	if d := normalize.DatePtr(v); d != nil {
		return d
	}
	if i := strings.IndexAny(v, " T"); i > 0 {
		if d := normalize.DatePtr(v[:i]); d != nil {
			return d
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

func cellCurrency(v string) *string {
	if v == "" {
		return nil
	}
	up := strings.ToUpper(v)
	if _, ok := constants.KnownCurrencies[up]; ok {
		return &up
	}
	if c, ok := detect.Currency(v); ok {
		return &c
	}
	return nil
}
