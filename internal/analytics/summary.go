// Package analytics computes spending breakdowns and flags unusual
// transactions over a canonical transaction sequence.
package analytics

import (
	"sort"

	"github.com/dvloznov/smart-budget/internal/domain"
	"github.com/shopspring/decimal"
)

// TopMerchantsLimit caps the merchant breakdown.
const TopMerchantsLimit = 10

// CategoryTotal is the absolute spend of one category.
type CategoryTotal struct {
	Category  string  `json:"category"`
	AbsAmount float64 `json:"abs_amount"`
}

// MonthTotal is the absolute spend of one YYYY-MM month.
type MonthTotal struct {
	Month     string  `json:"month"`
	AbsAmount float64 `json:"abs_amount"`
}

// MerchantTotal is the absolute spend per description.
type MerchantTotal struct {
	Description string  `json:"description"`
	AbsAmount   float64 `json:"abs_amount"`
}

// Summary is recomputed from scratch on every call. Only expenses
// (amount < 0) contribute to any figure.
type Summary struct {
	TotalSpent        float64         `json:"total_spent"`
	SummaryByCategory []CategoryTotal `json:"summary_by_category"`
	MonthlyTotals     []MonthTotal    `json:"monthly_totals"`
	TopMerchants      []MerchantTotal `json:"top_merchants"`
}

// ComputeSpending aggregates expense totals. A breakdown is empty when no
// transaction in the input carries its grouping field: no categories at
// all, no valid dates, or no descriptions. Within a non-empty category
// breakdown, uncategorized expenses are grouped as "Uncategorized".
func ComputeSpending(txs []domain.Transaction) (*Summary, error) {
	if len(txs) == 0 {
		return nil, domain.ErrNoTransactions
	}

	var hasCategory, hasDate, hasDescription bool
	for _, tx := range txs {
		hasCategory = hasCategory || tx.HasCategory()
		hasDate = hasDate || tx.Date.IsValid()
		hasDescription = hasDescription || tx.Description != ""
	}

	total := decimal.Zero
	byCategory := newGroupSum()
	byMonth := newGroupSum()
	byMerchant := newGroupSum()

	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		abs := tx.AbsAmount()
		total = total.Add(abs)

		if hasCategory {
			byCategory.add(categoryOf(tx), abs)
		}
		if month := tx.Month(); hasDate && month != "" {
			byMonth.add(month, abs)
		}
		if hasDescription && tx.Description != "" {
			byMerchant.add(tx.Description, abs)
		}
	}

	summary := &Summary{
		TotalSpent:        total.InexactFloat64(),
		SummaryByCategory: []CategoryTotal{},
		MonthlyTotals:     []MonthTotal{},
		TopMerchants:      []MerchantTotal{},
	}

	for _, g := range byCategory.sortedByAmount() {
		summary.SummaryByCategory = append(summary.SummaryByCategory, CategoryTotal{Category: g.key, AbsAmount: g.sum.InexactFloat64()})
	}
	for _, g := range byMonth.sortedByKey() {
		summary.MonthlyTotals = append(summary.MonthlyTotals, MonthTotal{Month: g.key, AbsAmount: g.sum.InexactFloat64()})
	}
	merchants := byMerchant.sortedByAmount()
	if len(merchants) > TopMerchantsLimit {
		merchants = merchants[:TopMerchantsLimit]
	}
	for _, g := range merchants {
		summary.TopMerchants = append(summary.TopMerchants, MerchantTotal{Description: g.key, AbsAmount: g.sum.InexactFloat64()})
	}

	return summary, nil
}

func categoryOf(tx domain.Transaction) string {
	if tx.HasCategory() {
		return tx.Category
	}
	return domain.Uncategorized
}

type group struct {
	key string
	sum decimal.Decimal
}

// groupSum accumulates sums per key, remembering first-appearance order.
type groupSum struct {
	index  map[string]int
	groups []group
}

func newGroupSum() *groupSum {
	return &groupSum{index: make(map[string]int)}
}

func (g *groupSum) add(key string, amount decimal.Decimal) {
	if i, ok := g.index[key]; ok {
		g.groups[i].sum = g.groups[i].sum.Add(amount)
		return
	}
	g.index[key] = len(g.groups)
	g.groups = append(g.groups, group{key: key, sum: amount})
}

// sortedByAmount orders groups by descending sum; ties keep first appearance.
func (g *groupSum) sortedByAmount() []group {
	out := append([]group(nil), g.groups...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].sum.GreaterThan(out[j].sum)
	})
	return out
}

func (g *groupSum) sortedByKey() []group {
	out := append([]group(nil), g.groups...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].key < out[j].key
	})
	return out
}
