package detect

import (
	"regexp"
	"strings"

	"github.com/graceskyliz/ocr3/constants"
)

// DocNumber is a document series plus its correlative number. Series may be empty.
type DocNumber struct {
	Series string
	Number string
}

func (n DocNumber) String() string {
	if n.Series == "" {
		return n.Number
	}
	return n.Series + "-" + n.Number
}

var (
	reInvoiceSeries = regexp.MustCompile(`(?i)\b(F\d{3})[ \t]*-[ \t]*(\d+)\b`)
	reReceiptSeries = regexp.MustCompile(`(?i)\b(B\d{3})[ \t]*-[ \t]*(\d+)\b`)

	reNumberLabeled = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:factura|boleta)(?:\s+de\s+venta)?(?:\s+electr[oó]nica)?[ \t]*(?:n[°º]|nro\.?|no\.)?[ \t]*[:.]?[ \t]*(\d{3,12})\b`),
		regexp.MustCompile(`(?i)(?:\bn[°º]|\bnro\.?|\bn[uú]mero|\bnum\.|\bno\.)[ \t]*[:.]?[ \t]*(\d{3,12})\b`),
	}

	// Labels of identity and contact numbers that also use "N°".
	rePartyLabel = regexp.MustCompile(`(?i)\b(?:dni|d\.n\.i|r\.?u\.?c|c\.?e|pasaporte|doc(?:umento)?|tel[eé]?f?(?:ono)?|telf|cel(?:ular)?|cuenta|cta)\.?[ \t:]*$`)

	reSeriesProximity = regexp.MustCompile(`(?i)\b([A-Z]\d{3})[ \t\-/#:.°º]{1,6}(\d{3,10})\b`)
)

// DocumentNumber looks for the kind's series pattern first, then a number next
// to a type or number label, then a short series token close to a digit run.
func DocumentNumber(text string, kind constants.DocumentKind) (DocNumber, bool) {
	primary, secondary := reInvoiceSeries, reReceiptSeries
	if kind == constants.KindReceipt {
		primary, secondary = reReceiptSeries, reInvoiceSeries
	}
	for _, re := range []*regexp.Regexp{primary, secondary} {
		if m := re.FindStringSubmatch(text); m != nil {
			return DocNumber{Series: strings.ToUpper(m[1]), Number: m[2]}, true
		}
	}
	for _, re := range reNumberLabeled {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			digits := text[loc[2]:loc[3]]
			if looksLikeTaxID(digits) || partyLabelBefore(text, loc[0]) {
				continue
			}
			return DocNumber{Number: digits}, true
		}
	}
	for _, m := range reSeriesProximity.FindAllStringSubmatch(text, -1) {
		if !looksLikeTaxID(m[2]) {
			return DocNumber{Series: strings.ToUpper(m[1]), Number: m[2]}, true
		}
	}
	return DocNumber{}, false
}

// partyLabelBefore reports whether the text on the same line right before
// start names a person or contact number, as in "DNI N° 45678912".
func partyLabelBefore(text string, start int) bool {
	line := text[:start]
	if i := strings.LastIndexByte(line, '\n'); i >= 0 {
		line = line[i+1:]
	}
	return rePartyLabel.MatchString(line)
}

// "RUC N° 20601234565" must not be read as a document number.
func looksLikeTaxID(digits string) bool {
	return len(digits) == 11
}
