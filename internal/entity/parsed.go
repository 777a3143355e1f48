package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/core/detect"
)

// ParsedDocument is the engine-agnostic result every extraction engine produces.
type ParsedDocument struct {
	Provider     ProviderFields         `json:"provider"`
	Invoice      InvoiceFields          `json:"invoice"`
	Items        []ItemFields           `json:"items"`
	Engine       string                 `json:"engine"`
	DocumentKind constants.DocumentKind `json:"document_kind,omitempty"`
	Confidence   *float64               `json:"confidence,omitempty"`
	RawText      string                 `json:"raw_text,omitempty"`
}

type ProviderFields struct {
	TaxID     *string `json:"tax_id,omitempty"`
	LegalName *string `json:"legal_name,omitempty"`
	Address   *string `json:"address,omitempty"`
}

type InvoiceFields struct {
	Series    *string          `json:"series,omitempty"`
	Number    *string          `json:"number,omitempty"`
	IssueDate *time.Time       `json:"issue_date,omitempty"`
	DueDate   *time.Time       `json:"due_date,omitempty"`
	Currency  *string          `json:"currency,omitempty"`
	Subtotal  *decimal.Decimal `json:"subtotal,omitempty"`
	Tax       *decimal.Decimal `json:"tax,omitempty"`
	Total     *decimal.Decimal `json:"total,omitempty"`
}

type ItemFields struct {
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Tax         *decimal.Decimal `json:"tax,omitempty"`
	Total       *decimal.Decimal `json:"total,omitempty"`
}

// ConfidenceValue returns the confidence or 0 when absent.
func (p ParsedDocument) ConfidenceValue() float64 {
	if p.Confidence == nil {
		return 0
	}
	return *p.Confidence
}

// Validate checks the canonical invariants: non-negative amounts, a known
// currency code, a checksum-valid tax id and a bounded confidence.
func (p ParsedDocument) Validate() error {
	v := common.NewValidator()
	v.Field("engine", p.Engine, common.Required)
	v.Field("provider.tax_id", p.Provider.TaxID, common.Check("must pass the tax id checksum", detect.ValidTaxID))
	v.Field("provider.legal_name", p.Provider.LegalName, common.MaxLength(512))
	v.Field("invoice.currency", p.Invoice.Currency, common.CurrencyCode(constants.KnownCurrencies))
	v.Field("invoice.subtotal", p.Invoice.Subtotal, common.NonNegative)
	v.Field("invoice.tax", p.Invoice.Tax, common.NonNegative)
	v.Field("invoice.total", p.Invoice.Total, common.NonNegative)
	for i, it := range p.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		v.Field(prefix+"quantity", it.Quantity, common.NonNegative)
		v.Field(prefix+"unit_price", it.UnitPrice, common.NonNegative)
		v.Field(prefix+"tax", it.Tax, common.NonNegative)
		v.Field(prefix+"total", it.Total, common.NonNegative)
	}
	if p.Confidence != nil && (*p.Confidence < 0 || *p.Confidence > 1) {
		v.Field("confidence", *p.Confidence, func(field string, value interface{}) *common.ValidationError {
			return &common.ValidationError{Field: field, Value: value, Message: "must be within [0,1]"}
		})
	}
	return v.Error()
}

// StrPtr returns nil for blank strings.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
