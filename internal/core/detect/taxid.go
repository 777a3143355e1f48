package detect

import "regexp"

var (
	reTaxIDLabeled = regexp.MustCompile(`(?i)\b(?:n\.?\s?)?r\.?\s?u\.?\s?c\.?\s*(?:n[°ºo.]?\s*)?[:\-]?\s*(\d{11})\b`)
	reDigitRun     = regexp.MustCompile(`\d+`)
)

var taxIDWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// ValidTaxID reports whether s is 11 digits with a valid mod-11 check digit.
func ValidTaxID(s string) bool {
	if len(s) != 11 {
		return false
	}
	sum := 0
	for i := 0; i < 11; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		if i < 10 {
			sum += int(s[i]-'0') * taxIDWeights[i]
		}
	}
	check := 11 - sum%11
	switch check {
	case 11:
		check = 0
	case 10:
		check = 1
	}
	return check == int(s[10]-'0')
}

// TaxID returns the first labeled tax id that passes the checksum, falling back
// to every bare 11-digit run in document order.
func TaxID(text string) (string, bool) {
	for _, m := range reTaxIDLabeled.FindAllStringSubmatch(text, -1) {
		if ValidTaxID(m[1]) {
			return m[1], true
		}
	}
	for _, run := range reDigitRun.FindAllString(text, -1) {
		if len(run) == 11 && ValidTaxID(run) {
			return run, true
		}
	}
	return "", false
}
