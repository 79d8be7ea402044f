package model

// Role is the acting role of a user in the service center.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleStaff      Role = "staff"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
	// RoleSystem is used for automated callers such as the payment callback.
	RoleSystem Role = "system"
)

var roles = map[Role]struct{}{
	RoleCustomer:   {},
	RoleStaff:      {},
	RoleTechnician: {},
	RoleAdmin:      {},
	RoleSystem:     {},
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roles[r]
	return ok
}

// IsStaffSide reports whether r acts on behalf of the service center.
func (r Role) IsStaffSide() bool {
	return r == RoleStaff || r == RoleAdmin || r == RoleSystem
}

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}
