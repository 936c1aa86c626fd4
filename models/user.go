package models

// User is a registered account. Name is case-sensitive and acts as the
// primary key; PasswordHash is the opaque hashed credential and never leaves
// the server.
type User struct {
	Name         string `db:"name" json:"name"`
	PasswordHash string `db:"password_hash" json:"-"`
}

// Equal reports whether u and other denote the same identity.
func (u *User) Equal(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.Name == other.Name
}
