package data

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/certmint/certmint/internal/server/models"
	"github.com/certmint/certmint/uid"
)

func CreateUser(db *gorm.DB, user *models.User) error {
	if user.Email == "" {
		return fmt.Errorf("email is required")
	}
	return add(db, user)
}

func GetUser(db *gorm.DB, selectors ...SelectorFunc) (*models.User, error) {
	return get[models.User](db, selectors...)
}

func ListUsers(db *gorm.DB, p *models.Pagination, selectors ...SelectorFunc) ([]models.User, error) {
	return list[models.User](db, p, selectors...)
}

func DeleteUser(db *gorm.DB, id uid.ID) error {
	return remove[models.User](db, id)
}

func CreateRole(db *gorm.DB, role *models.Role) error {
	if role.Name == "" {
		return fmt.Errorf("name is required")
	}
	return add(db, role)
}

func GetRole(db *gorm.DB, selectors ...SelectorFunc) (*models.Role, error) {
	return get[models.Role](db, selectors...)
}

// AddRoleMember adds the user to the role. Membership grants visibility of
// certificates owned by the role name.
func AddRoleMember(db *gorm.DB, role *models.Role, user *models.User) error {
	return db.Model(role).Association("Users").Append(user)
}

func RemoveRoleMember(db *gorm.DB, role *models.Role, user *models.User) error {
	return db.Model(role).Association("Users").Delete(user)
}
