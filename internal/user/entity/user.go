package entity

import "time"

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User maps the users table.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}

var roleRank = map[string]int{RoleUser: 1, RoleModerator: 2, RoleAdmin: 3}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// HasRole reports whether the user holds required or a higher role.
func (u *User) HasRole(required string) bool {
	need, ok := roleRank[required]
	return ok && roleRank[u.Role] >= need
}
