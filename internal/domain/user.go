package domain

import "time"

// User is a registered person. Roles decide whether the user can book rides,
// drive a vehicle, or administer the system.
type User struct {
	ID        string
	Name      string
	Phone     string
	Roles     []Role
	CreatedAt time.Time
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role Role) bool {
	return containsRole(u.Roles, role)
}
