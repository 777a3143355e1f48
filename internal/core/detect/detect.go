// Package detect holds the field detectors run over recognized text. Every
// detector is a pure function of its input.
package detect

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/graceskyliz/ocr3/constants"
)

// Fields is the union of detector results for one text.
type Fields struct {
	TaxID     string
	LegalName string
	Currency  string
	Total     *decimal.Decimal
	IssueDate *time.Time
	Number    DocNumber
}

// Present counts the scored fields that were found: tax id, currency, total,
// issue date and document number.
func (f Fields) Present() int {
	n := 0
	if f.TaxID != "" {
		n++
	}
	if f.Currency != "" {
		n++
	}
	if f.Total != nil {
		n++
	}
	if f.IssueDate != nil {
		n++
	}
	if f.Number.Number != "" {
		n++
	}
	return n
}

// Detect runs every detector over text.
func Detect(text string, kind constants.DocumentKind) Fields {
	var f Fields
	if v, ok := TaxID(text); ok {
		f.TaxID = v
	}
	if v, ok := LegalName(text); ok {
		f.LegalName = v
	}
	if v, ok := Currency(text); ok {
		f.Currency = v
	}
	if v, ok := Total(text); ok {
		f.Total = &v
	}
	if v, ok := IssueDate(text); ok {
		f.IssueDate = &v
	}
	if v, ok := DocumentNumber(text, kind); ok {
		f.Number = v
	}
	return f
}
