package analytics

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/dvloznov/smart-budget/internal/domain"
	"github.com/shopspring/decimal"
)

// Anomaly thresholds: a transaction is flagged when its absolute amount is
// above median + StdMultiplier*std of its category and above MinAnomalyAmount.
const (
	StdMultiplier    = 2.0
	MinAnomalyAmount = 50.0
)

// Anomaly is a read-only view of a flagged transaction together with the
// category statistics that flagged it.
type Anomaly struct {
	Transaction domain.Transaction
	Category    string
	AbsAmount   decimal.Decimal
	Median      float64
	Std         float64
	Threshold   float64
}

// MarshalJSON renders the transaction fields flat, next to the statistics.
func (a Anomaly) MarshalJSON() ([]byte, error) {
	date := ""
	if a.Transaction.Date.IsValid() {
		date = a.Transaction.Date.String()
	}
	return json.Marshal(struct {
		Date        string      `json:"date"`
		Description string      `json:"description"`
		Amount      json.Number `json:"amount"`
		Currency    string      `json:"currency"`
		Category    string      `json:"category"`
		AbsAmount   json.Number `json:"abs_amount"`
		Median      float64     `json:"category_median"`
		Std         float64     `json:"category_std"`
		Threshold   float64     `json:"threshold"`
	}{
		Date:        date,
		Description: a.Transaction.Description,
		Amount:      json.Number(a.Transaction.Amount.String()),
		Currency:    a.Transaction.Currency,
		Category:    a.Category,
		AbsAmount:   json.Number(a.AbsAmount.String()),
		Median:      a.Median,
		Std:         a.Std,
		Threshold:   a.Threshold,
	})
}

// DetectAnomalies flags unusually large transactions per category. Unlike
// ComputeSpending it considers every transaction regardless of sign and
// groups uncategorized ones under "Uncategorized". The result is sorted by
// descending absolute amount; ties keep input order.
func DetectAnomalies(txs []domain.Transaction) ([]Anomaly, error) {
	if len(txs) == 0 {
		return nil, domain.ErrNoTransactions
	}

	byCategory := make(map[string][]float64)
	for _, tx := range txs {
		c := categoryOf(tx)
		byCategory[c] = append(byCategory[c], tx.AbsAmount().InexactFloat64())
	}

	type stats struct{ median, std float64 }
	categoryStats := make(map[string]stats, len(byCategory))
	for c, values := range byCategory {
		categoryStats[c] = stats{median: median(values), std: sampleStd(values)}
	}

	anomalies := []Anomaly{}
	for _, tx := range txs {
		c := categoryOf(tx)
		s := categoryStats[c]
		abs := tx.AbsAmount()
		v := abs.InexactFloat64()
		threshold := s.median + StdMultiplier*s.std
		if v > threshold && v > MinAnomalyAmount {
			anomalies = append(anomalies, Anomaly{
				Transaction: tx,
				Category:    c,
				AbsAmount:   abs,
				Median:      s.median,
				Std:         s.std,
				Threshold:   threshold,
			})
		}
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].AbsAmount.GreaterThan(anomalies[j].AbsAmount)
	})
	return anomalies, nil
}

// median of values; values is not modified.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// sampleStd is the n-1 standard deviation, 0 when fewer than two values.
func sampleStd(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
