package data

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/certmint/certmint/internal/server/models"
	"github.com/certmint/certmint/uid"
)

func validateDestination(dest *models.Destination) error {
	if dest.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func CreateDestination(db *gorm.DB, destination *models.Destination) error {
	if err := validateDestination(destination); err != nil {
		return err
	}
	return add(db, destination)
}

func SaveDestination(db *gorm.DB, destination *models.Destination) error {
	if err := validateDestination(destination); err != nil {
		return err
	}
	return save(db, destination)
}

func GetDestination(db *gorm.DB, selectors ...SelectorFunc) (*models.Destination, error) {
	return get[models.Destination](db, selectors...)
}

func ListDestinations(db *gorm.DB, p *models.Pagination, selectors ...SelectorFunc) ([]models.Destination, error) {
	return list[models.Destination](db, p, selectors...)
}

func DeleteDestination(db *gorm.DB, id uid.ID) error {
	return remove[models.Destination](db, id)
}
