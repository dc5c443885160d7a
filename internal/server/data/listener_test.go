package data

import (
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/certmint/certmint/internal"
	"github.com/certmint/certmint/internal/server/models"
)

func TestCreateListener(t *testing.T) {
	db := setupDB(t)
	ca := setupCA(t, "Example CA")

	t.Run("secure protocol with certificate", func(t *testing.T) {
		cert := createTestCertificate(t, db, ca, "lb.example.com", time.Now().AddDate(1, 0, 0))

		listener := &models.Listener{
			Protocol:      "HTTPS",
			Port:          443,
			CertificateID: &cert.ID,
		}
		assert.NilError(t, CreateListener(db, listener))
		assert.Assert(t, listener.ID != 0)
	})

	t.Run("secure protocol without certificate", func(t *testing.T) {
		listener := &models.Listener{Protocol: "TLS", Port: 8443}
		err := CreateListener(db, listener)

		var invalidErr internal.InvalidListenerError
		assert.Assert(t, errors.As(err, &invalidErr))
	})

	t.Run("plain protocol without certificate", func(t *testing.T) {
		listener := &models.Listener{Protocol: "HTTP", Port: 80}
		assert.NilError(t, CreateListener(db, listener))
	})
}
