package models

// User is the authenticated caller on whose behalf certificates are minted.
// Authentication happens outside this system; the record exists for
// ownership and visibility checks.
type User struct {
	Model

	Email  string `gorm:"uniqueIndex:idx_users_email"`
	Active bool

	// Roles may be populated by some queries to contain the roles the user
	// is a member of.
	Roles []Role `gorm:"many2many:user_roles"`
}
