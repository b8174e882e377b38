package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

const (
	// DefaultCurrency is used when no currency column is bound.
	DefaultCurrency = "USD"

	// Uncategorized labels transactions without a category in breakdowns.
	Uncategorized = "Uncategorized"

	// NoDescription replaces a blank description so the field is never empty.
	NoDescription = "(no description)"
)

// Transaction is the canonical record every downstream stage consumes.
// It is a value type: stages return modified copies instead of mutating.
type Transaction struct {
	Date        civil.Date      // calendar date, rendered YYYY-MM-DD
	Description string          // never empty
	Amount      decimal.Decimal // negative = expense, positive = income/refund
	Currency    string          // defaults to USD
	Category    string          // "" means absent
}

// NewTransaction builds a canonical transaction, applying the description
// and currency defaults.
func NewTransaction(date civil.Date, description string, amount decimal.Decimal, currency, category string) Transaction {
	if strings.TrimSpace(description) == "" {
		description = NoDescription
	}
	currency = strings.TrimSpace(currency)
	if currency == "" {
		currency = DefaultCurrency
	}
	return Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Currency:    currency,
		Category:    strings.TrimSpace(category),
	}
}

// HasCategory reports whether a non-blank category is assigned.
func (t Transaction) HasCategory() bool {
	return strings.TrimSpace(t.Category) != ""
}

// WithCategory returns a copy of t carrying the given category.
func (t Transaction) WithCategory(category string) Transaction {
	t.Category = category
	return t
}

// IsExpense reports whether the amount is negative.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// AbsAmount returns the absolute amount.
func (t Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// Month returns the YYYY-MM key of the transaction date, or "" when the
// date is not valid.
func (t Transaction) Month() string {
	if !t.Date.IsValid() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", t.Date.Year, int(t.Date.Month))
}

type wireTransaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount,omitempty"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category,omitempty"`
}

// MarshalJSON renders the amount as a JSON number and omits an absent category.
func (t Transaction) MarshalJSON() ([]byte, error) {
	date := ""
	if t.Date.IsValid() {
		date = t.Date.String()
	}
	return json.Marshal(wireTransaction{
		Date:        date,
		Description: t.Description,
		Amount:      json.RawMessage(t.Amount.String()),
		Currency:    t.Currency,
		Category:    t.Category,
	})
}

// DecodeTransactions parses a JSON array of transactions as produced by
// MarshalJSON. Records whose amount is absent or not numeric are skipped;
// if no record carries an amount at all a MissingFieldError is returned.
func DecodeTransactions(data []byte) ([]Transaction, error) {
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("DecodeTransactions: unmarshal JSON: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoTransactions
	}

	result := make([]Transaction, 0, len(records))
	sawAmount := false
	for _, rec := range records {
		rawAmount, ok := rec["amount"]
		if !ok || string(rawAmount) == "null" {
			continue
		}
		sawAmount = true

		amount, ok := decodeAmount(rawAmount)
		if !ok {
			continue
		}

		var date civil.Date
		if d, err := civil.ParseDate(decodeString(rec["date"])); err == nil {
			date = d
		}
		result = append(result, NewTransaction(
			date,
			decodeString(rec["description"]),
			amount,
			decodeString(rec["currency"]),
			decodeString(rec["category"]),
		))
	}

	if !sawAmount {
		return nil, &MissingFieldError{Field: "amount"}
	}
	return result, nil
}

func decodeAmount(raw json.RawMessage) (decimal.Decimal, bool) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		d, err := decimal.NewFromString(num.String())
		return d, err == nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

func decodeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Non-string scalars are kept in their JSON text form.
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}
