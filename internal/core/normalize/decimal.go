// Package normalize holds the locale-aware parsing primitives shared by every engine.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	reCurrencyNoise = regexp.MustCompile(`(?i)US\$|S/\.?|\bPEN\b|\bUSD\b|\bsoles\b|\bd[oó]lares\b|[$€£]`)
	reSignedDecimal = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
)

// Decimal parses a locale-inconsistent amount. When both '.' and ',' occur, the
// last one is the decimal point and the other a thousands separator; a lone ','
// is a decimal point. Anything that is not a signed decimal afterwards is absent.
func Decimal(text string) (decimal.Decimal, bool) {
	s := reCurrencyNoise.ReplaceAllString(text, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}

	if !reSignedDecimal.MatchString(s) {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// DecimalPtr is Decimal for optional fields.
func DecimalPtr(text string) *decimal.Decimal {
	d, ok := Decimal(text)
	if !ok {
		return nil
	}
	return &d
}

// NonNegativePtr is DecimalPtr that also drops negative values.
func NonNegativePtr(text string) *decimal.Decimal {
	d := DecimalPtr(text)
	if d == nil || d.IsNegative() {
		return nil
	}
	return d
}
