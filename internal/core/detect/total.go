package detect

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/graceskyliz/ocr3/internal/core/normalize"
)

const currencyPrefix = `(?:s/\.?|us\$|\$|pen|usd)?[ \t]*`

// Ordered by priority: total-due labels, plain "total", generic amount labels.
var reTotalLabeled = []*regexp.Regexp{
	regexp.MustCompile(`(?:importe\s+total|total\s+a\s+pagar|monto\s+total|total\s+general|total\s+venta)[ \t]*[:=]?[ \t]*` + currencyPrefix + `(\d[\d.,]*)`),
	regexp.MustCompile(`(\bsub[ \t.\-]*)?\btotal\b[ \t]*[:=]?[ \t]*` + currencyPrefix + `(\d[\d.,]*)`),
	regexp.MustCompile(`\b(?:importe|monto|neto)\b[^\d\n]{0,20}?` + currencyPrefix + `(\d[\d.,]*)`),
}

var reMoney = regexp.MustCompile(`\d{1,3}(?:[.,]\d{3})+[.,]\d{2}|\d+[.,]\d{2}`)

// Total returns the labeled total, or the largest money-shaped number in the text.
func Total(text string) (decimal.Decimal, bool) {
	t := normalize.Fold(text)
	for _, re := range reTotalLabeled {
		for _, m := range re.FindAllStringSubmatch(t, -1) {
			// "sub total" lines carry the pre-tax amount
			if len(m) > 2 && m[1] != "" {
				continue
			}
			if d, ok := normalize.Decimal(trimSeparators(m[len(m)-1])); ok && !d.IsNegative() {
				return d, true
			}
		}
	}
	return largestAmount(t)
}

func largestAmount(t string) (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for _, loc := range reMoney.FindAllStringIndex(t, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && isNumberByte(t[start-1]) {
			continue
		}
		if end < len(t) && isDigit(t[end]) {
			continue
		}
		// 31.12.2024 is a date, not 31.12
		if end+1 < len(t) && (t[end] == '.' || t[end] == ',' || t[end] == '/' || t[end] == '-') && isDigit(t[end+1]) {
			continue
		}
		d, ok := normalize.Decimal(t[start:end])
		if !ok {
			continue
		}
		if !found || d.GreaterThan(best) {
			best, found = d, true
		}
	}
	return best, found
}

func trimSeparators(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '.' || s[len(s)-1] == ',') {
		s = s[:len(s)-1]
	}
	return s
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isNumberByte(b byte) bool { return isDigit(b) || b == '.' || b == ',' }
