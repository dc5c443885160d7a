package data

import (
	"testing"
	"time"

	"gorm.io/gorm"
	"gotest.tools/v3/assert"

	"github.com/certmint/certmint/internal/certs"
	"github.com/certmint/certmint/internal/server/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	driver, err := NewSQLiteDriver("file::memory:")
	assert.NilError(t, err)

	db, err := NewDB(driver)
	assert.NilError(t, err)

	return db
}

func setupCA(t *testing.T, commonName string) *certs.CA {
	t.Helper()

	ca, err := certs.NewCA(commonName)
	assert.NilError(t, err)
	return ca
}

// createTestCertificate issues a certificate from ca and stores it.
func createTestCertificate(t *testing.T, db *gorm.DB, ca *certs.CA, commonName string, notAfter time.Time) *models.Certificate {
	t.Helper()

	body, err := ca.Issue(commonName, notAfter)
	assert.NilError(t, err)

	cert, err := models.NewCertificate(body, "", string(ca.PEM))
	assert.NilError(t, err)

	err = CreateCertificate(db, cert)
	assert.NilError(t, err)

	return cert
}
