package schema

import "github.com/dvloznov/smart-budget/internal/domain"

// Method records how a column was bound.
type Method string

const (
	MethodHeader  Method = "header"
	MethodContent Method = "content"
)

// Bound is one column bound to a role.
type Bound struct {
	Column int
	Name   string
	Method Method
}

// Binding maps roles to raw columns. A role that is absent is unbound.
type Binding map[domain.ColumnRole]Bound

// Has reports whether role is bound.
func (b Binding) Has(role domain.ColumnRole) bool {
	_, ok := b[role]
	return ok
}

// Column returns the bound column index for role, or -1.
func (b Binding) Column(role domain.ColumnRole) int {
	if bound, ok := b[role]; ok {
		return bound.Column
	}
	return -1
}

// Missing returns the required roles that are still unbound.
func (b Binding) Missing() []domain.ColumnRole {
	var missing []domain.ColumnRole
	for _, role := range domain.RequiredRoles {
		if !b.Has(role) {
			missing = append(missing, role)
		}
	}
	return missing
}

// usedColumns returns the set of column indices bound to any role.
func (b Binding) usedColumns() map[int]bool {
	used := make(map[int]bool, len(b))
	for _, bound := range b {
		used[bound.Column] = true
	}
	return used
}
