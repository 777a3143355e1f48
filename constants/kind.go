package constants

import "strings"

// DocumentKind is the commercial document class.
type DocumentKind string

const (
	KindInvoice     DocumentKind = "invoice" // factura
	KindReceipt     DocumentKind = "receipt" // boleta
	KindSpreadsheet DocumentKind = "spreadsheet"
)

// ParseKind maps a declared kind, in English or Spanish, to a DocumentKind.
// Unknown or empty input returns "".
func ParseKind(s string) DocumentKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "invoice", "factura":
		return KindInvoice
	case "receipt", "boleta":
		return KindReceipt
	case "spreadsheet", "excel", "xlsx", "sheet":
		return KindSpreadsheet
	}
	return ""
}

// Engine names recorded on invoices and extractions.
const (
	EnginePattern = "local-tesseract"
	EngineTabular = "local-excel"
	EngineGemini  = "gemini-vision"
	EngineOpenAI  = "openai-vision"
)

// Currency codes emitted by the currency detector.
const (
	CurrencyLocal   = "PEN"
	CurrencyForeign = "USD"
)

// KnownCurrencies is the set of ISO 4217 codes accepted from structured engines.
var KnownCurrencies = map[string]struct{}{
	"PEN": {}, "USD": {}, "EUR": {}, "GBP": {}, "CLP": {}, "COP": {},
	"MXN": {}, "BRL": {}, "ARS": {}, "BOB": {}, "CAD": {}, "JPY": {},
}

// RawTextLimit caps raw_text per engine family.
const (
	RawTextLimitOCR    = 20000
	RawTextLimitVision = 5000
)
