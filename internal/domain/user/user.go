package user

import (
	"github.com/xenking/drinkhub/internal/domain/fault"
)

var (
	// ErrCustomerNotFound is returned when a customer id does not resolve to a
	// user with the customer role.
	ErrCustomerNotFound = fault.New(fault.NotFound, "customer_not_found", "customer not found")
	// ErrVendorNotFound is returned when a vendor id does not resolve to a
	// user with the vendor role.
	ErrVendorNotFound = fault.New(fault.NotFound, "vendor_not_found", "vendor not found")
)

// Role tags which attribute set a user carries.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// User is an account plus exactly one role-specific attribute set.
type User struct {
	ID    int64
	Email string
	Name  string
	Role  Role

	Customer *Customer
	Vendor   *Vendor
	Admin    *Admin
}

// Customer holds the attributes of the customer role.
type Customer struct {
	MembershipLevel int
	StoredBalance   int64
}

// Vendor holds the attributes of the vendor role.
type Vendor struct {
	Revenue  int64
	Active   bool
	Verified bool
}

// Admin carries no extra attributes.
type Admin struct{}

// Consistent reports whether the attribute set present matches Role.
func (u User) Consistent() bool {
	switch u.Role {
	case RoleCustomer:
		return u.Customer != nil && u.Vendor == nil && u.Admin == nil
	case RoleVendor:
		return u.Vendor != nil && u.Customer == nil && u.Admin == nil
	case RoleAdmin:
		return u.Admin != nil && u.Customer == nil && u.Vendor == nil
	}
	return false
}

// Accepting reports whether a vendor may receive new orders.
func (v Vendor) Accepting() bool {
	return v.Active && v.Verified
}
