package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_Consistent(t *testing.T) {
	tests := []struct {
		name string
		user User
		want bool
	}{
		{name: "customer", user: User{Role: RoleCustomer, Customer: &Customer{}}, want: true},
		{name: "vendor", user: User{Role: RoleVendor, Vendor: &Vendor{}}, want: true},
		{name: "admin", user: User{Role: RoleAdmin, Admin: &Admin{}}, want: true},
		{name: "customer without attrs", user: User{Role: RoleCustomer}, want: false},
		{name: "vendor with customer attrs", user: User{Role: RoleVendor, Vendor: &Vendor{}, Customer: &Customer{}}, want: false},
		{name: "unknown role", user: User{Role: "guest"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.Consistent())
		})
	}
}

func TestVendor_Accepting(t *testing.T) {
	assert.True(t, Vendor{Active: true, Verified: true}.Accepting())
	assert.False(t, Vendor{Active: true}.Accepting())
	assert.False(t, Vendor{Verified: true}.Accepting())
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("").Valid())
}
