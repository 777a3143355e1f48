package entity

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/common"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func valid() ParsedDocument {
	conf := 0.8
	return ParsedDocument{
		Provider:   ProviderFields{TaxID: StrPtr("20601234565"), LegalName: StrPtr("ACME")},
		Invoice:    InvoiceFields{Currency: StrPtr("PEN"), Total: dec("10.00")},
		Items:      []ItemFields{{Description: "x", Quantity: dec("1"), Total: dec("10")}},
		Engine:     constants.EnginePattern,
		Confidence: &conf,
	}
}

func TestParsedDocument_Validate(t *testing.T) {
	require.NoError(t, valid().Validate())

	empty := ParsedDocument{Engine: constants.EngineTabular}
	assert.NoError(t, empty.Validate())

	tests := []struct {
		name   string
		mutate func(*ParsedDocument)
		field  string
	}{
		{"no engine", func(p *ParsedDocument) { p.Engine = "" }, "engine"},
		{"bad checksum", func(p *ParsedDocument) { p.Provider.TaxID = StrPtr("20601234564") }, "provider.tax_id"},
		{"unknown currency", func(p *ParsedDocument) { p.Invoice.Currency = StrPtr("XXX") }, "invoice.currency"},
		{"negative total", func(p *ParsedDocument) { p.Invoice.Total = dec("-0.01") }, "invoice.total"},
		{"negative item", func(p *ParsedDocument) { p.Items[0].UnitPrice = dec("-3") }, "items[0].unit_price"},
		{"confidence above one", func(p *ParsedDocument) { c := 1.5; p.Confidence = &c }, "confidence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestParsedDocument_ConfidenceValue(t *testing.T) {
	assert.Equal(t, 0.0, ParsedDocument{}.ConfidenceValue())
	assert.Equal(t, 0.8, valid().ConfidenceValue())
}

func TestParsedDocument_JSONOmitsAbsentFields(t *testing.T) {
	p := ParsedDocument{Engine: constants.EnginePattern, Invoice: InvoiceFields{Total: dec("1250.00")}}
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"provider":{},"invoice":{"total":"1250"},"items":null,"engine":"local-tesseract"}`, string(b))
}

func TestStrPtr(t *testing.T) {
	assert.Nil(t, StrPtr(""))
	assert.Equal(t, "a", *StrPtr("a"))
}
