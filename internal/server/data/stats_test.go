package data

import (
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/certmint/certmint/internal"
	"github.com/certmint/certmint/internal/server/models"
	"github.com/certmint/certmint/uid"
)

func TestCountCertificatesBy(t *testing.T) {
	db := setupDB(t)

	internalCA := setupCA(t, "Internal CA")
	vendorCA := setupCA(t, "Vendor Trust Services")

	soon := time.Now().AddDate(0, 0, 7*4)
	later := time.Now().AddDate(2, 0, 0) // outside the expiry window

	app := createTestCertificate(t, db, internalCA, "app.example.com", soon)
	api := createTestCertificate(t, db, internalCA, "api.example.com", soon)
	createTestCertificate(t, db, vendorCA, "shop.example.com", later)

	asMap := func(stats *CertificateStats) map[string]int {
		result := map[string]int{}
		for i, label := range stats.Labels {
			result[label] = stats.Values[i]
		}
		return result
	}

	t.Run("group by issuer", func(t *testing.T) {
		stats, err := CountCertificatesBy(db, StatsOptions{Metric: "issuer"})
		assert.NilError(t, err)
		assert.DeepEqual(t, asMap(stats), map[string]int{
			"Internal CA":           2,
			"Vendor Trust Services": 1,
		})
	})

	t.Run("not_after groups by issuer within the window", func(t *testing.T) {
		stats, err := CountCertificatesBy(db, StatsOptions{Metric: "not_after"})
		assert.NilError(t, err)
		// the vendor certificate expires outside the window
		assert.DeepEqual(t, asMap(stats), map[string]int{"Internal CA": 2})
	})

	t.Run("restricted to active listeners", func(t *testing.T) {
		listener := &models.Listener{
			Protocol:      "HTTPS",
			Port:          443,
			CertificateID: &app.ID,
		}
		assert.NilError(t, CreateListener(db, listener))

		stats, err := CountCertificatesBy(db, StatsOptions{
			Metric:          "issuer",
			ActiveListeners: true,
		})
		assert.NilError(t, err)
		assert.DeepEqual(t, asMap(stats), map[string]int{"Internal CA": 1})
	})

	t.Run("restricted to a destination", func(t *testing.T) {
		dest := &models.Destination{Name: "elb", Plugin: "aws-iam"}
		assert.NilError(t, CreateDestination(db, dest))

		_, err := UpdateCertificate(db, api.ID, UpdateCertificateRequest{
			DestinationIDs: []uid.ID{dest.ID},
		})
		assert.NilError(t, err)

		stats, err := CountCertificatesBy(db, StatsOptions{
			Metric:        "issuer",
			DestinationID: dest.ID,
		})
		assert.NilError(t, err)
		assert.DeepEqual(t, asMap(stats), map[string]int{"Internal CA": 1})
	})

	t.Run("unknown metric", func(t *testing.T) {
		_, err := CountCertificatesBy(db, StatsOptions{Metric: "private_key"})
		var attrErr internal.AttrNotFoundError
		assert.Assert(t, errors.As(err, &attrErr))
		assert.Equal(t, attrErr.Field, "private_key")
	})
}
