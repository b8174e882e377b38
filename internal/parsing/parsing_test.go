package parsing

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"-23.50", "-23.5", true},
		{"2000", "2000", true},
		{"  42 ", "42", true},
		{"+7.25", "7.25", true},
		{"1e3", "1000", true},
		{"1,234.56", "1234.56", true},
		{"1.234,56", "1234.56", true},
		{"1 234,56", "1234.56", true},
		{"1 234,56", "1234.56", true},
		{"12,50", "12.5", true},
		{"1,234", "1234", true},
		{"0,123", "0.123", true},
		{"$23.50", "23.5", true},
		{"-€1.000,00", "-1000", true},
		{"(12.50)", "-12.5", true},
		{"12.50-", "-12.5", true},
		{"1'000.5", "1000.5", true},
		{"", "", false},
		{"abc", "", false},
		{"USD", "", false},
		{"26.11.2025", "", false},
		{"2025-11-26", "", false},
		{"1,23,4", "", false},
		{"NaN", "", false},
		{"inf", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestIsPlainNumber(t *testing.T) {
	assert.True(t, IsPlainNumber("3.14"))
	assert.True(t, IsPlainNumber("-1"))
	assert.False(t, IsPlainNumber("1,000"))
	assert.False(t, IsPlainNumber("Infinity"))
	assert.False(t, IsPlainNumber(""))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  civil.Date
		ok    bool
	}{
		{"2025-11-26", civil.Date{Year: 2025, Month: 11, Day: 26}, true},
		{"2025/1/5", civil.Date{Year: 2025, Month: 1, Day: 5}, true},
		{"26/11/2025", civil.Date{Year: 2025, Month: 11, Day: 26}, true},
		{"03/04/2025", civil.Date{Year: 2025, Month: 4, Day: 3}, true},
		{"26.11.2025", civil.Date{Year: 2025, Month: 11, Day: 26}, true},
		{"26-11-2025", civil.Date{Year: 2025, Month: 11, Day: 26}, true},
		{"5.1.25", civil.Date{Year: 2025, Month: 1, Day: 5}, true},
		{"11/26/2025", civil.Date{Year: 2025, Month: 11, Day: 26}, true},
		{"2 Jan 2025", civil.Date{Year: 2025, Month: 1, Day: 2}, true},
		{"Jan 2, 2025", civil.Date{Year: 2025, Month: 1, Day: 2}, true},
		{"2025-11-26T10:30:00Z", civil.Date{Year: 2025, Month: 11, Day: 26}, true},
		{"26.11.2025 14:05", civil.Date{Year: 2025, Month: 11, Day: 26}, true},
		{"31/02/2025", civil.Date{}, false},
		{"20251126", civil.Date{}, false},
		{"not a date", civil.Date{}, false},
		{"", civil.Date{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
