package data

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/certmint/certmint/internal/server/models"
	"github.com/certmint/certmint/uid"
)

func validateAuthority(authority *models.Authority) error {
	switch {
	case authority.Name == "":
		return fmt.Errorf("name is required")
	case authority.Plugin == "":
		return fmt.Errorf("plugin is required")
	}
	return nil
}

func CreateAuthority(db *gorm.DB, authority *models.Authority) error {
	if err := validateAuthority(authority); err != nil {
		return err
	}
	return add(db, authority)
}

func SaveAuthority(db *gorm.DB, authority *models.Authority) error {
	if err := validateAuthority(authority); err != nil {
		return err
	}
	return save(db, authority)
}

func GetAuthority(db *gorm.DB, selectors ...SelectorFunc) (*models.Authority, error) {
	return get[models.Authority](db, selectors...)
}

func ListAuthorities(db *gorm.DB, p *models.Pagination, selectors ...SelectorFunc) ([]models.Authority, error) {
	return list[models.Authority](db, p, selectors...)
}

func DeleteAuthority(db *gorm.DB, id uid.ID) error {
	return remove[models.Authority](db, id)
}
