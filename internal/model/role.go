package model

// Role is the numeric role id stored on users.
type Role int

const (
	RoleAdmin            Role = 1
	RoleCustomer         Role = 2
	RoleVendor           Role = 3
	RoleRealEstateVendor Role = 4
	RoleServiceVendor    Role = 5
)

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func (r Role) IsCustomer() bool {
	return r == RoleCustomer
}

// IsVendor reports whether the role is one of the three seller kinds.
func (r Role) IsVendor() bool {
	switch r {
	case RoleVendor, RoleRealEstateVendor, RoleServiceVendor:
		return true
	}
	return false
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleCustomer:
		return "customer"
	case RoleVendor:
		return "vendor"
	case RoleRealEstateVendor:
		return "real_estate_vendor"
	case RoleServiceVendor:
		return "service_vendor"
	}
	return "unknown"
}

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID uint
	Role   Role
}

// CanActForVendor reports whether the actor may read or mutate resources owned by vendorID.
func (a Actor) CanActForVendor(vendorID uint) bool {
	if a.Role.IsAdmin() {
		return true
	}
	return a.Role.IsVendor() && a.UserID == vendorID
}
