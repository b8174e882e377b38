package schema

import (
	"math"
	"unicode/utf8"

	"github.com/dvloznov/smart-budget/internal/domain"
	"github.com/dvloznov/smart-budget/internal/parsing"
)

// Content signature thresholds.
const (
	MinDateParseRatio      = 0.70
	MinAmountParseRatio    = 0.70
	MinAmountDistinct      = 5
	MinDescriptionUnique   = 0.30
	MinDescriptionMeanLen  = 4.0
	MaxDescriptionLenScore = 80.0
)

// ColumnScore is the content signature of one candidate column for a role.
// Rejected columns carry Score 0 and Accepted false.
type ColumnScore struct {
	Column   int
	Ratio    float64 // parse ratio (date, amount) or uniqueness ratio (description)
	Distinct int
	MeanLen  float64
	Score    float64
	Accepted bool
}

// InferColumns fills Date, Amount and Description from cell content when
// header matching left them unbound. Roles that are already bound are never
// re-evaluated. Candidates exclude every column bound to any role, including
// columns inferred earlier in this call.
func InferColumns(table *domain.RawTable, binding Binding) Binding {
	result := make(Binding, len(binding)+3)
	for role, bound := range binding {
		result[role] = bound
	}
	if table.Len() == 0 {
		return result
	}

	inferers := []struct {
		role  domain.ColumnRole
		score func([]domain.Cell) ColumnScore
	}{
		{domain.RoleDate, scoreDateColumn},
		{domain.RoleAmount, scoreAmountColumn},
		{domain.RoleDescription, scoreDescriptionColumn},
	}

	for _, inf := range inferers {
		if result.Has(inf.role) {
			continue
		}
		used := result.usedColumns()
		best := -1
		bestScore := 0.0
		for col := range table.Columns {
			if used[col] {
				continue
			}
			s := inf.score(table.Column(col))
			if s.Accepted && (best < 0 || s.Score > bestScore) {
				best, bestScore = col, s.Score
			}
		}
		if best >= 0 {
			result[inf.role] = Bound{Column: best, Name: table.Columns[best], Method: MethodContent}
		}
	}
	return result
}

// ScoreColumn exposes the content signature of a column for a role, for
// diagnostics. Roles other than date/amount/description are never inferred.
func ScoreColumn(table *domain.RawTable, col int, role domain.ColumnRole) ColumnScore {
	cells := table.Column(col)
	var s ColumnScore
	switch role {
	case domain.RoleDate:
		s = scoreDateColumn(cells)
	case domain.RoleAmount:
		s = scoreAmountColumn(cells)
	case domain.RoleDescription:
		s = scoreDescriptionColumn(cells)
	}
	s.Column = col
	return s
}

func scoreDateColumn(cells []domain.Cell) ColumnScore {
	if len(cells) == 0 {
		return ColumnScore{}
	}
	parsed := 0
	for _, c := range cells {
		if _, ok := parsing.ParseDate(c.Text()); ok {
			parsed++
		}
	}
	ratio := float64(parsed) / float64(len(cells))
	return ColumnScore{
		Ratio:    ratio,
		Score:    ratio,
		Accepted: ratio >= MinDateParseRatio,
	}
}

func scoreAmountColumn(cells []domain.Cell) ColumnScore {
	if len(cells) == 0 {
		return ColumnScore{}
	}
	parsed := 0
	distinct := make(map[string]struct{})
	for _, c := range cells {
		d, ok := parsing.ParseNumber(c.Text())
		if !ok {
			continue
		}
		parsed++
		distinct[d.String()] = struct{}{}
	}
	ratio := float64(parsed) / float64(len(cells))
	s := ColumnScore{Ratio: ratio, Distinct: len(distinct)}
	if ratio < MinAmountParseRatio || s.Distinct < MinAmountDistinct {
		return s
	}
	s.Score = ratio * (1 + math.Sqrt(float64(s.Distinct)))
	s.Accepted = true
	return s
}

func scoreDescriptionColumn(cells []domain.Cell) ColumnScore {
	if len(cells) == 0 {
		return ColumnScore{}
	}
	distinct := make(map[string]struct{})
	totalLen := 0
	for _, c := range cells {
		if c.IsMissing() {
			continue
		}
		text := c.Text()
		distinct[text] = struct{}{}
		totalLen += utf8.RuneCountInString(text)
	}
	n := float64(len(cells))
	s := ColumnScore{
		Ratio:    float64(len(distinct)) / n,
		Distinct: len(distinct),
		MeanLen:  float64(totalLen) / n,
	}
	if s.Ratio < MinDescriptionUnique || s.MeanLen < MinDescriptionMeanLen {
		return s
	}
	s.Score = s.Ratio * math.Min(s.MeanLen, MaxDescriptionLenScore)
	s.Accepted = true
	return s
}

// Resolve binds all roles for a table: header matching first, content
// inference for the required roles header matching missed. It fails with a
// SchemaInferenceError when Date, Description or Amount stay unbound.
func Resolve(table *domain.RawTable, profile *Profile) (Binding, error) {
	binding := InferColumns(table, MatchHeaders(table.Columns, profile))
	if missing := binding.Missing(); len(missing) > 0 {
		return nil, &domain.SchemaInferenceError{Columns: table.Columns, Missing: missing}
	}
	return binding, nil
}
