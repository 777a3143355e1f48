package detect

import (
	"regexp"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/core/normalize"
)

var (
	reReceiptKeyword = regexp.MustCompile(`\bboleta\b`)
	reInvoiceKeyword = regexp.MustCompile(`\bfactura\b`)
)

// Kind classifies recognized text; invoice is the default.
func Kind(text string) constants.DocumentKind {
	t := normalize.Fold(text)
	switch {
	case reReceiptKeyword.MatchString(t):
		return constants.KindReceipt
	case reInvoiceKeyword.MatchString(t):
		return constants.KindInvoice
	default:
		return constants.KindInvoice
	}
}
