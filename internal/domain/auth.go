package domain

// Role differentiates regular accounts from staff in issued tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleStaff Role = "STAFF"
)

// RoleFor returns the token role of a user.
func RoleFor(u *User) Role {
	if u != nil && u.Staff {
		return RoleStaff
	}
	return RoleUser
}
