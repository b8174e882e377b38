package schema

import "github.com/dvloznov/smart-budget/internal/domain"

// MatchHeaders binds every role whose accepted variants contain a column
// name. Variants are tried in list order and, for each variant, columns
// left to right; the first hit wins. Roles without a hit stay unbound.
func MatchHeaders(columns []string, profile *Profile) Binding {
	normalized := make([]string, len(columns))
	for i, c := range columns {
		normalized[i] = domain.NormalizeHeader(c)
	}

	binding := make(Binding)
	for _, role := range domain.AllRoles {
		if col, ok := findColumn(normalized, profile.Headers[role]); ok {
			binding[role] = Bound{Column: col, Name: columns[col], Method: MethodHeader}
		}
	}
	return binding
}

func findColumn(normalized []string, variants []string) (int, bool) {
	for _, v := range variants {
		want := domain.NormalizeHeader(v)
		for i, name := range normalized {
			if name == want {
				return i, true
			}
		}
	}
	return -1, false
}
