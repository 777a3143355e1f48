package detect

import (
	"regexp"
	"time"

	"github.com/graceskyliz/ocr3/internal/core/normalize"
)

const dateShape = `(\d{2}/\d{2}/\d{4}|\d{4}-\d{2}-\d{2}|\d{2}-\d{2}-\d{4}|\d{2}\.\d{2}\.\d{4}|\d{2} \d{2} \d{4})`

var (
	reIssueDateLabeled = []*regexp.Regexp{
		regexp.MustCompile(`fecha\s+de\s+emision[ \t]*[:\-]?[ \t]*` + dateShape),
		regexp.MustCompile(`(?:fecha\s+emision|f\.\s*emision|emitido\s+el)[ \t]*[:\-]?[ \t]*` + dateShape),
		regexp.MustCompile(`\b(?:emision|fecha)[ \t]*[:\-]?[ \t]*` + dateShape),
	}
	reDateShape = regexp.MustCompile(dateShape)
)

// IssueDate returns the first labeled issue date, else the first date-shaped
// substring in document order that parses.
func IssueDate(text string) (time.Time, bool) {
	t := normalize.Fold(text)
	for _, re := range reIssueDateLabeled {
		for _, m := range re.FindAllStringSubmatch(t, -1) {
			if d, ok := normalize.Date(m[1]); ok {
				return d, true
			}
		}
	}
	for _, m := range reDateShape.FindAllString(t, -1) {
		if d, ok := normalize.Date(m); ok {
			return d, true
		}
	}
	return time.Time{}, false
}
