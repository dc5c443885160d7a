package data

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/certmint/certmint/internal/server/models"
	"github.com/certmint/certmint/uid"
)

func validateNotification(notification *models.Notification) error {
	if notification.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func CreateNotification(db *gorm.DB, notification *models.Notification) error {
	if err := validateNotification(notification); err != nil {
		return err
	}
	return add(db, notification)
}

func SaveNotification(db *gorm.DB, notification *models.Notification) error {
	if err := validateNotification(notification); err != nil {
		return err
	}
	return save(db, notification)
}

func GetNotification(db *gorm.DB, selectors ...SelectorFunc) (*models.Notification, error) {
	return get[models.Notification](db, selectors...)
}

func ListNotifications(db *gorm.DB, p *models.Pagination, selectors ...SelectorFunc) ([]models.Notification, error) {
	return list[models.Notification](db, p, selectors...)
}

func DeleteNotification(db *gorm.DB, id uid.ID) error {
	return remove[models.Notification](db, id)
}
