package normalize

import (
	"strings"
	"time"
)

// DateLayouts is the fixed, ordered list of accepted date shapes.
var DateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"02.01.2006",
	"02 01 2006",
}

// Date parses text with the first matching layout. The result is a calendar date at UTC midnight.
func Date(text string) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DatePtr is Date for optional fields.
func DatePtr(text string) *time.Time {
	t, ok := Date(text)
	if !ok {
		return nil
	}
	return &t
}
