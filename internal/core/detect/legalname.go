package detect

import (
	"regexp"
	"strings"
)

var reLegalName = regexp.MustCompile(`(?i)raz[oó]n\s+social[ \t]*[:\-]?[ \t]*([^\n]{2,120})`)

// LegalName reads the value after a "razón social" label on the same line.
func LegalName(text string) (string, bool) {
	m := reLegalName.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	name := strings.Trim(strings.TrimSpace(m[1]), ":-")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	return name, true
}
