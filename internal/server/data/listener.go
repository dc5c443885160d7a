package data

import (
	"gorm.io/gorm"

	"github.com/certmint/certmint/internal"
	"github.com/certmint/certmint/internal/server/models"
	"github.com/certmint/certmint/uid"
)

func CreateListener(db *gorm.DB, listener *models.Listener) error {
	if listener.RequiresCertificate() && listener.CertificateID == nil {
		return internal.InvalidListenerError{}
	}
	return add(db, listener)
}

func ListListeners(db *gorm.DB, p *models.Pagination, selectors ...SelectorFunc) ([]models.Listener, error) {
	return list[models.Listener](db, p, selectors...)
}

func DeleteListener(db *gorm.DB, id uid.ID) error {
	return remove[models.Listener](db, id)
}
