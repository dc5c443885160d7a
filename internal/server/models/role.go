package models

// Role is a team-style grouping of users. A certificate owned by a role name
// is visible to every member of that role.
type Role struct {
	Model

	Name        string `gorm:"uniqueIndex:idx_roles_name"`
	Description string

	Users []User `gorm:"many2many:user_roles"`
}
