package detect

import (
	"regexp"
	"strings"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/core/normalize"
)

var (
	reForeignToken = regexp.MustCompile(`\busd\b|us\$|\bdolar(?:es)?\b`)
	reLocalToken   = regexp.MustCompile(`\bpen\b|\bsoles\b`)
	reLocalSymbol  = regexp.MustCompile(`\bs/`)
)

// Currency decides between the local and the foreign currency.
// Explicit foreign tokens win, then explicit local tokens, then a symbol count
// where the local symbol wins ties. No token and no symbol means absent.
func Currency(text string) (string, bool) {
	t := normalize.Fold(text)
	if reForeignToken.MatchString(t) {
		return constants.CurrencyForeign, true
	}
	if reLocalToken.MatchString(t) {
		return constants.CurrencyLocal, true
	}
	local := len(reLocalSymbol.FindAllStringIndex(t, -1))
	foreign := strings.Count(t, "$")
	switch {
	case local == 0 && foreign == 0:
		return "", false
	case local >= foreign:
		return constants.CurrencyLocal, true
	default:
		return constants.CurrencyForeign, true
	}
}
