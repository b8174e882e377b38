package pipeline

import (
	"github.com/dvloznov/smart-budget/internal/domain"
	"github.com/dvloznov/smart-budget/internal/parsing"
	"github.com/dvloznov/smart-budget/internal/schema"
)

// RowOutcome is the classification of one source row: either a kept
// transaction or the reasons it was dropped.
type RowOutcome struct {
	Transaction domain.Transaction
	Reasons     []domain.DropReason
}

// Kept reports whether the row produced a transaction.
func (o RowOutcome) Kept() bool {
	return len(o.Reasons) == 0
}

// RowDrop records a filtered row by its zero-based data row index.
type RowDrop struct {
	Row     int                 `json:"row"`
	Reasons []domain.DropReason `json:"reasons"`
}

// NormalizeResult is the canonical transaction stream plus the rows that
// were filtered out on the way.
type NormalizeResult struct {
	Binding      schema.Binding
	Transactions []domain.Transaction
	Drops        []RowDrop
}

// DropCounts tallies drops per reason. A row dropped for both reasons
// counts once under each.
func (r *NormalizeResult) DropCounts() map[domain.DropReason]int {
	counts := make(map[domain.DropReason]int)
	for _, d := range r.Drops {
		for _, reason := range d.Reasons {
			counts[reason]++
		}
	}
	return counts
}

// Normalizer turns a raw table into canonical transactions.
type Normalizer struct {
	profile         *schema.Profile
	sign            SignNormalizer
	defaultCurrency string
}

// NewNormalizer creates a normalizer. A nil profile selects the built-in
// one; an empty defaultCurrency selects USD.
func NewNormalizer(profile *schema.Profile, defaultCurrency string) *Normalizer {
	if profile == nil {
		profile = schema.DefaultProfile()
	}
	if defaultCurrency == "" {
		defaultCurrency = domain.DefaultCurrency
	}
	return &Normalizer{
		profile:         profile,
		sign:            NewSignNormalizer(profile.ExpenseMarkers),
		defaultCurrency: defaultCurrency,
	}
}

// Profile returns the header profile in use.
func (n *Normalizer) Profile() *schema.Profile {
	return n.profile
}

// Normalize binds the table's columns and classifies every row. It fails
// only when the schema cannot be resolved; unparseable rows are recorded
// in Drops and never reach Transactions. Source order is preserved.
func (n *Normalizer) Normalize(table *domain.RawTable) (*NormalizeResult, error) {
	binding, err := schema.Resolve(table, n.profile)
	if err != nil {
		return nil, err
	}

	result := &NormalizeResult{
		Binding:      binding,
		Transactions: make([]domain.Transaction, 0, table.Len()),
	}
	for i, row := range table.Rows {
		outcome := n.ClassifyRow(binding, row)
		if outcome.Kept() {
			result.Transactions = append(result.Transactions, outcome.Transaction)
			continue
		}
		result.Drops = append(result.Drops, RowDrop{Row: i, Reasons: outcome.Reasons})
	}
	return result, nil
}

// ClassifyRow converts one row under binding. Date and amount are both
// checked so that every failing reason is reported.
func (n *Normalizer) ClassifyRow(binding schema.Binding, row []domain.Cell) RowOutcome {
	var outcome RowOutcome

	date, dateOK := parsing.ParseDate(cellAt(row, binding, domain.RoleDate).Text())
	if !dateOK {
		outcome.Reasons = append(outcome.Reasons, domain.DropInvalidDate)
	}
	amount, amountOK := parsing.ParseNumber(cellAt(row, binding, domain.RoleAmount).Text())
	if !amountOK {
		outcome.Reasons = append(outcome.Reasons, domain.DropInvalidAmount)
	}
	if !outcome.Kept() {
		return outcome
	}

	if binding.Has(domain.RoleInOutFlag) {
		amount = n.sign.Apply(cellAt(row, binding, domain.RoleInOutFlag).Text(), amount)
	}

	currency := n.defaultCurrency
	if binding.Has(domain.RoleCurrency) {
		if c := cellAt(row, binding, domain.RoleCurrency).Text(); c != "" {
			currency = c
		}
	}

	var category string
	if binding.Has(domain.RoleCategory) {
		category = cellAt(row, binding, domain.RoleCategory).Text()
	}

	outcome.Transaction = domain.NewTransaction(
		date,
		cellAt(row, binding, domain.RoleDescription).Text(),
		amount,
		currency,
		category,
	)
	return outcome
}

func cellAt(row []domain.Cell, binding schema.Binding, role domain.ColumnRole) domain.Cell {
	col := binding.Column(role)
	if col < 0 || col >= len(row) {
		return domain.MissingCell()
	}
	return row[col]
}
