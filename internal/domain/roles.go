package domain

// ColumnRole is the semantic field a raw column can be bound to.
type ColumnRole string

const (
	RoleDate        ColumnRole = "date"
	RoleDescription ColumnRole = "description"
	RoleAmount      ColumnRole = "amount"
	RoleCurrency    ColumnRole = "currency"
	RoleCategory    ColumnRole = "category"
	RoleInOutFlag   ColumnRole = "in_out_flag"
)

// AllRoles lists every role in binding order.
var AllRoles = []ColumnRole{
	RoleDate,
	RoleDescription,
	RoleAmount,
	RoleCurrency,
	RoleCategory,
	RoleInOutFlag,
}

// RequiredRoles must be bound before a table can be normalized.
var RequiredRoles = []ColumnRole{RoleDate, RoleDescription, RoleAmount}
