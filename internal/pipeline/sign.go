package pipeline

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SignNormalizer forces expense rows negative based on an income/expense
// flag column. Markers are matched as case-insensitive substrings.
type SignNormalizer struct {
	markers []string
}

// NewSignNormalizer builds a normalizer for the given expense markers.
// Blank markers are ignored.
func NewSignNormalizer(markers []string) SignNormalizer {
	s := SignNormalizer{markers: make([]string, 0, len(markers))}
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			s.markers = append(s.markers, m)
		}
	}
	return s
}

// IsExpense reports whether flag contains an expense marker.
func (s SignNormalizer) IsExpense(flag string) bool {
	flag = strings.ToLower(flag)
	for _, m := range s.markers {
		if strings.Contains(flag, m) {
			return true
		}
	}
	return false
}

// Apply returns -|amount| for expense flags and amount unchanged otherwise.
func (s SignNormalizer) Apply(flag string, amount decimal.Decimal) decimal.Decimal {
	if s.IsExpense(flag) {
		return amount.Abs().Neg()
	}
	return amount
}
