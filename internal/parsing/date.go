package parsing

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// dateLayouts are tried in order. ISO forms come first because they are
// unambiguous; day-first forms precede the month-first fallback so that
// "03/04/2025" reads as 3 April.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",

	"2/1/2006",
	"2.1.2006",
	"2-1-2006",
	"2/1/06",
	"2.1.06",

	"1/2/2006",

	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",

	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006 15:04:05",
}

// ParseDate parses a calendar date, preferring day-first interpretation for
// ambiguous numeric forms. Bare numbers are never treated as dates.
func ParseDate(raw string) (civil.Date, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || IsPlainNumber(s) {
		return civil.Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}
