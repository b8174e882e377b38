// Package parsing holds the fallible cell conversions used by schema
// inference and normalization. Every function reports success explicitly
// instead of coercing bad input to a zero value.
package parsing

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const currencySymbols = "$€£₽¥₴₸"

// IsPlainNumber reports whether s is a number in the strict sense a CSV
// reader would accept without locale handling (e.g. "-23.50", "1e3").
func IsPlainNumber(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	lower := strings.ToLower(s)
	return !strings.Contains(lower, "inf") && !strings.Contains(lower, "nan")
}

// ParseNumber parses a monetary amount. Besides plain numbers it accepts
// currency symbols, parentheses or a trailing minus for negatives, and
// grouped digits with either '.' or ',' as the decimal separator
// ("1,234.56", "1.234,56", "1 234,56").
func ParseNumber(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, false
	}
	if IsPlainNumber(s) {
		d, err := decimal.NewFromString(s)
		if err == nil {
			return d, true
		}
	}

	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune(currencySymbols, r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	negative := false
	switch {
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		negative = true
		s = s[1 : len(s)-1]
	case strings.HasSuffix(s, "-"):
		negative = true
		s = strings.TrimSuffix(s, "-")
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	} else {
		s = strings.TrimPrefix(s, "+")
	}

	digits, ok := canonicalDigits(s)
	if !ok {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// canonicalDigits rewrites a separator-grouped number into "1234.56" form.
func canonicalDigits(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != ',' && r != '.' && r != '\'' {
			return "", false
		}
	}
	s = strings.ReplaceAll(s, "'", "")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	var intPart, fracPart, groupSep string
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			intPart, fracPart, groupSep = s[:lastComma], s[lastComma+1:], "."
		} else {
			intPart, fracPart, groupSep = s[:lastDot], s[lastDot+1:], ","
		}
	case lastComma >= 0:
		intPart, fracPart, groupSep = splitSingleSeparator(s, ",")
	case lastDot >= 0:
		intPart, fracPart, groupSep = splitSingleSeparator(s, ".")
	default:
		intPart = s
	}

	if groupSep != "" && strings.Contains(intPart, groupSep) {
		if !validGroups(strings.Split(intPart, groupSep)) {
			return "", false
		}
		intPart = strings.ReplaceAll(intPart, groupSep, "")
	}
	if strings.ContainsAny(intPart, ",.") || strings.ContainsAny(fracPart, ",.") {
		return "", false
	}
	if intPart == "" && fracPart == "" {
		return "", false
	}
	if intPart == "" {
		intPart = "0"
	}
	if fracPart == "" {
		return intPart, true
	}
	return intPart + "." + fracPart, true
}

// splitSingleSeparator handles a number that uses only one kind of
// separator. Several occurrences mean digit grouping; a single one followed
// by exactly three digits after a non-zero integer part is also grouping
// ("1,234"), otherwise it is the decimal separator ("12,50").
func splitSingleSeparator(s, sep string) (intPart, fracPart, groupSep string) {
	if strings.Count(s, sep) > 1 {
		return s, "", sep
	}
	idx := strings.Index(s, sep)
	before, after := s[:idx], s[idx+1:]
	if len(after) == 3 && before != "" && strings.TrimLeft(before, "0") != "" {
		return s, "", sep
	}
	return before, after, ""
}

func validGroups(groups []string) bool {
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}
