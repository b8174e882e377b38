package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dvloznov/smart-budget/internal/domain"
	"github.com/dvloznov/smart-budget/internal/parsing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// table builds a RawTable from string rows, tagging cells the way the CSV
// loader does.
func table(columns []string, rows ...[]string) *domain.RawTable {
	cells := make([][]domain.Cell, len(rows))
	for i, row := range rows {
		for _, v := range row {
			switch {
			case v == "":
				cells[i] = append(cells[i], domain.MissingCell())
			case parsing.IsPlainNumber(v):
				cells[i] = append(cells[i], domain.Cell{Kind: domain.CellNumber, Raw: v})
			default:
				cells[i] = append(cells[i], domain.Cell{Kind: domain.CellText, Raw: v})
			}
		}
	}
	return domain.NewRawTable(columns, cells)
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	assert.Equal(t, []string{"date", "transaction_date", "Дата", "posting_date", "Дата операции"}, p.Headers[domain.RoleDate])
	assert.Contains(t, p.ExpenseMarkers, "Расход")
}

func TestParseProfile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "headers:\n  date: [date]\n  description: [d]\n  amount: [a]\n  balance: [b]\n"},
		{"missing required", "headers:\n  date: [date]\n  amount: [a]\n"},
		{"empty variant", "headers:\n  date: ['  ']\n  description: [d]\n  amount: [a]\n"},
		{"bad yaml", "headers: [unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfile([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestMatchHeaders(t *testing.T) {
	p := DefaultProfile()

	t.Run("case, whitespace and BOM insensitive", func(t *testing.T) {
		b := MatchHeaders([]string{"\ufeffDATE ", "  Details", "Amount", "Curr"}, p)
		assert.Equal(t, 0, b.Column(domain.RoleDate))
		assert.Equal(t, 1, b.Column(domain.RoleDescription))
		assert.Equal(t, 2, b.Column(domain.RoleAmount))
		assert.Equal(t, 3, b.Column(domain.RoleCurrency))
		assert.False(t, b.Has(domain.RoleCategory))
		assert.Equal(t, MethodHeader, b[domain.RoleDate].Method)
	})

	t.Run("russian headers", func(t *testing.T) {
		b := MatchHeaders([]string{"Дата", "Описание", "Сумма", "Категория", "Тип"}, p)
		assert.Empty(t, b.Missing())
		assert.Equal(t, 3, b.Column(domain.RoleCategory))
		assert.Equal(t, 4, b.Column(domain.RoleInOutFlag))
	})

	t.Run("inner whitespace collapses", func(t *testing.T) {
		b := MatchHeaders([]string{"Дата  операции", "Описание", "Сумма"}, p)
		assert.Equal(t, 0, b.Column(domain.RoleDate))
	})

	t.Run("variant order beats column order", func(t *testing.T) {
		b := MatchHeaders([]string{"memo", "description"}, p)
		assert.Equal(t, 1, b.Column(domain.RoleDescription))
	})

	t.Run("column order breaks ties within a variant", func(t *testing.T) {
		b := MatchHeaders([]string{"Amount", "amount"}, p)
		assert.Equal(t, 0, b.Column(domain.RoleAmount))
	})

	t.Run("no match is not an error", func(t *testing.T) {
		b := MatchHeaders([]string{"foo", "bar"}, p)
		assert.Empty(t, b)
		assert.Equal(t, -1, b.Column(domain.RoleDate))
	})
}

func TestResolve_InfersDescription(t *testing.T) {
	tbl := table([]string{"date", "desc", "amount"},
		[]string{"26/11/2025", "Uber ride", "-23.50"},
		[]string{"27/11/2025", "Salary", "2000"},
	)

	b, err := Resolve(tbl, DefaultProfile())
	require.NoError(t, err)
	assert.Equal(t, 0, b.Column(domain.RoleDate))
	assert.Equal(t, 2, b.Column(domain.RoleAmount))
	assert.Equal(t, 1, b.Column(domain.RoleDescription))
	assert.Equal(t, MethodContent, b[domain.RoleDescription].Method)
	assert.Equal(t, MethodHeader, b[domain.RoleAmount].Method)
}

func TestResolve_HeaderPrecedence(t *testing.T) {
	// "value" is a header match for amount even though "debit" has far more
	// distinct numeric values; inference must not run for amount.
	rows := make([][]string, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, []string{
			fmt.Sprintf("%02d/01/2025", i+1),
			fmt.Sprintf("Shop number %d", i),
			"1",
			fmt.Sprintf("-%d.25", i*13+7),
		})
	}
	tbl := table([]string{"date", "description", "value", "debit"}, rows...)

	b, err := Resolve(tbl, DefaultProfile())
	require.NoError(t, err)
	assert.Equal(t, 2, b.Column(domain.RoleAmount))
	assert.Equal(t, MethodHeader, b[domain.RoleAmount].Method)
}

func TestInferColumns_AllRoles(t *testing.T) {
	tbl := table([]string{"c0", "c1", "c2", "c3"},
		[]string{"A", "01.02.2025", "Coffee at the corner", "-3.50"},
		[]string{"A", "02.02.2025", "Weekly groceries", "-54.10"},
		[]string{"B", "03.02.2025", "Monthly rent", "-900"},
		[]string{"A", "04.02.2025", "Cinema tickets", "-22"},
		[]string{"B", "05.02.2025", "Salary February", "3100"},
		[]string{"A", "06.02.2025", "Bookshop", "-17.99"},
	)

	b := InferColumns(tbl, Binding{})
	assert.Equal(t, 1, b.Column(domain.RoleDate))
	assert.Equal(t, 3, b.Column(domain.RoleAmount))
	assert.Equal(t, 2, b.Column(domain.RoleDescription))
	for _, role := range domain.RequiredRoles {
		assert.Equal(t, MethodContent, b[role].Method)
	}
}

func TestInferColumns_Thresholds(t *testing.T) {
	t.Run("date below 70 percent stays unbound", func(t *testing.T) {
		tbl := table([]string{"when"},
			[]string{"01/01/2025"}, []string{"02/01/2025"}, []string{"soon"}, []string{"later"},
		)
		b := InferColumns(tbl, Binding{})
		assert.False(t, b.Has(domain.RoleDate))
		assert.InDelta(t, 0.5, ScoreColumn(tbl, 0, domain.RoleDate).Ratio, 1e-9)
	})

	t.Run("low cardinality numeric column is not an amount", func(t *testing.T) {
		tbl := table([]string{"flag"},
			[]string{"1"}, []string{"0"}, []string{"1"}, []string{"2"}, []string{"3"}, []string{"1"},
		)
		s := ScoreColumn(tbl, 0, domain.RoleAmount)
		assert.Equal(t, 4, s.Distinct)
		assert.False(t, s.Accepted)
		assert.False(t, InferColumns(tbl, Binding{}).Has(domain.RoleAmount))
	})

	t.Run("amount score prefers more distinct values", func(t *testing.T) {
		tbl := table([]string{"a", "b"},
			[]string{"1", "10"}, []string{"2", "20"}, []string{"3", "30"},
			[]string{"4", "40"}, []string{"5", "50"}, []string{"5", "60"},
		)
		b := InferColumns(tbl, Binding{})
		assert.Equal(t, 1, b.Column(domain.RoleAmount))
	})

	t.Run("short codes are not descriptions", func(t *testing.T) {
		tbl := table([]string{"code"},
			[]string{"AB"}, []string{"CD"}, []string{"EF"}, []string{"GH"},
		)
		s := ScoreColumn(tbl, 0, domain.RoleDescription)
		assert.InDelta(t, 1.0, s.Ratio, 1e-9)
		assert.InDelta(t, 2.0, s.MeanLen, 1e-9)
		assert.False(t, s.Accepted)
	})

	t.Run("repetitive labels are not descriptions", func(t *testing.T) {
		tbl := table([]string{"kind"},
			[]string{"Expense"}, []string{"Expense"}, []string{"Expense"}, []string{"Expense"},
			[]string{"Income"}, []string{"Expense"}, []string{"Expense"}, []string{"Expense"},
		)
		assert.False(t, ScoreColumn(tbl, 0, domain.RoleDescription).Accepted)
	})

	t.Run("long free text is capped", func(t *testing.T) {
		long := make([]byte, 200)
		for i := range long {
			long[i] = 'x'
		}
		tbl := table([]string{"notes"}, []string{string(long)}, []string{string(long) + "y"})
		s := ScoreColumn(tbl, 0, domain.RoleDescription)
		assert.InDelta(t, 80.0, s.Score, 1e-9)
	})
}

func TestResolve_SchemaInferenceError(t *testing.T) {
	tbl := table([]string{"x", "y"},
		[]string{"1", "a"},
		[]string{"2", "b"},
	)

	_, err := Resolve(tbl, DefaultProfile())
	require.Error(t, err)

	var schemaErr *domain.SchemaInferenceError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"x", "y"}, schemaErr.Columns)
	assert.Contains(t, err.Error(), "Found columns: [x, y]")
}
