package data

import (
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/certmint/certmint/internal"
	"github.com/certmint/certmint/internal/server/models"
	"github.com/certmint/certmint/uid"
)

func TestCreateCertificate(t *testing.T) {
	db := setupDB(t)
	ca := setupCA(t, "Example CA")

	t.Run("success", func(t *testing.T) {
		cert := createTestCertificate(t, db, ca, "app.example.com", time.Now().AddDate(1, 0, 0))

		assert.Assert(t, cert.ID != 0)
		assert.Equal(t, cert.Issuer, "Example CA")

		stored, err := GetCertificate(db, ByID(cert.ID))
		assert.NilError(t, err)
		assert.Equal(t, stored.Name, cert.Name)
		assert.Equal(t, stored.Body, cert.Body)
	})

	t.Run("conflict on name", func(t *testing.T) {
		body, err := ca.Issue("dup.example.com", time.Now().AddDate(1, 0, 0))
		assert.NilError(t, err)

		cert, err := models.NewCertificate(body, "", "")
		assert.NilError(t, err)
		assert.NilError(t, CreateCertificate(db, cert))

		// a second certificate with the same name, even with a different body
		other, err := ca.Issue("dup.example.com", time.Now().AddDate(1, 0, 0))
		assert.NilError(t, err)

		next, err := models.NewCertificate(other, "", "")
		assert.NilError(t, err)
		assert.Equal(t, next.Name, cert.Name)

		err = CreateCertificate(db, next)
		var ucErr UniqueConstraintError
		assert.Assert(t, errors.As(err, &ucErr))
		assert.Equal(t, ucErr.Table, "certificates")
	})

	t.Run("missing body", func(t *testing.T) {
		err := CreateCertificate(db, &models.Certificate{Name: "incomplete"})
		assert.ErrorContains(t, err, "body is required")
	})
}

func TestFindCertificatesByBody(t *testing.T) {
	db := setupDB(t)
	ca := setupCA(t, "Example CA")

	cert := createTestCertificate(t, db, ca, "one.example.com", time.Now().AddDate(1, 0, 0))
	createTestCertificate(t, db, ca, "two.example.com", time.Now().AddDate(1, 0, 0))

	found, err := FindCertificatesByBody(db, cert.Body)
	assert.NilError(t, err)
	assert.Equal(t, len(found), 1)
	assert.Equal(t, found[0].ID, cert.ID)

	found, err = FindCertificatesByBody(db, "-----BEGIN CERTIFICATE-----\nnope\n-----END CERTIFICATE-----\n")
	assert.NilError(t, err)
	assert.Equal(t, len(found), 0)
}

func TestUpdateCertificate(t *testing.T) {
	db := setupDB(t)
	ca := setupCA(t, "Example CA")

	d1 := &models.Destination{Name: "elb-east", Plugin: "aws-iam"}
	d2 := &models.Destination{Name: "elb-west", Plugin: "aws-iam"}
	assert.NilError(t, CreateDestination(db, d1))
	assert.NilError(t, CreateDestination(db, d2))

	n1 := &models.Notification{Name: "expiry-30d", Plugin: "email"}
	assert.NilError(t, CreateNotification(db, n1))

	t.Run("metadata and associations", func(t *testing.T) {
		cert := createTestCertificate(t, db, ca, "update.example.com", time.Now().AddDate(1, 0, 0))

		updated, err := UpdateCertificate(db, cert.ID, UpdateCertificateRequest{
			Owner:           "team@example.com",
			Description:     "payments edge",
			Active:          true,
			DestinationIDs:  []uid.ID{d1.ID, d2.ID},
			NotificationIDs: []uid.ID{n1.ID},
		})
		assert.NilError(t, err)
		assert.Equal(t, updated.Owner, "team@example.com")
		assert.Equal(t, updated.Description, "payments edge")
		assert.Equal(t, len(updated.Destinations), 2)
		assert.Equal(t, len(updated.Notifications), 1)

		// body and chain are write-once
		assert.Equal(t, updated.Body, cert.Body)
		assert.Equal(t, updated.Chain, cert.Chain)
	})

	t.Run("association list replaces the set", func(t *testing.T) {
		cert := createTestCertificate(t, db, ca, "replace.example.com", time.Now().AddDate(1, 0, 0))

		_, err := UpdateCertificate(db, cert.ID, UpdateCertificateRequest{
			Owner:          "team@example.com",
			DestinationIDs: []uid.ID{d1.ID, d2.ID},
		})
		assert.NilError(t, err)

		updated, err := UpdateCertificate(db, cert.ID, UpdateCertificateRequest{
			Owner:          "team@example.com",
			DestinationIDs: []uid.ID{d2.ID},
		})
		assert.NilError(t, err)
		assert.Equal(t, len(updated.Destinations), 1)
		assert.Equal(t, updated.Destinations[0].ID, d2.ID)
	})

	t.Run("unknown association id", func(t *testing.T) {
		cert := createTestCertificate(t, db, ca, "badassoc.example.com", time.Now().AddDate(1, 0, 0))

		_, err := UpdateCertificate(db, cert.ID, UpdateCertificateRequest{
			Owner:          "team@example.com",
			DestinationIDs: []uid.ID{uid.New()},
		})
		assert.Assert(t, errors.Is(err, internal.ErrNotFound))
	})

	t.Run("unknown certificate", func(t *testing.T) {
		_, err := UpdateCertificate(db, uid.New(), UpdateCertificateRequest{})
		assert.Assert(t, errors.Is(err, internal.ErrNotFound))
	})
}

func TestDeleteCertificate(t *testing.T) {
	db := setupDB(t)
	ca := setupCA(t, "Example CA")

	dest := &models.Destination{Name: "elb", Plugin: "aws-iam"}
	assert.NilError(t, CreateDestination(db, dest))

	cert := createTestCertificate(t, db, ca, "gone.example.com", time.Now().AddDate(1, 0, 0))
	_, err := UpdateCertificate(db, cert.ID, UpdateCertificateRequest{
		Owner:          "team@example.com",
		DestinationIDs: []uid.ID{dest.ID},
	})
	assert.NilError(t, err)

	assert.NilError(t, DeleteCertificate(db, cert.ID))

	_, err = GetCertificate(db, ByID(cert.ID))
	assert.Assert(t, errors.Is(err, internal.ErrNotFound))

	// join rows are removed with the certificate
	var joins int64
	err = db.Table("certificate_destinations").
		Where("certificate_id = ?", cert.ID).Count(&joins).Error
	assert.NilError(t, err)
	assert.Equal(t, joins, int64(0))
}

func TestRenderCertificates(t *testing.T) {
	db := setupDB(t)

	internalCA := setupCA(t, "Internal CA")
	vendorCA := setupCA(t, "Vendor Trust Services")

	authority := &models.Authority{Name: "internal", Plugin: "selfsigned"}
	assert.NilError(t, CreateAuthority(db, authority))

	soon := time.Now().AddDate(0, 0, 7*2)
	later := time.Now().AddDate(1, 0, 0)

	app := createTestCertificate(t, db, internalCA, "app.example.com", later)
	api := createTestCertificate(t, db, internalCA, "api.example.com", soon)
	shop := createTestCertificate(t, db, vendorCA, "shop.example.com", later)

	// app was minted through the configured authority, api only carries the
	// issuer string
	app.AuthorityID = &authority.ID
	app.Active = true
	assert.NilError(t, SaveCertificate(db, app))

	api.Active = true
	assert.NilError(t, SaveCertificate(db, api))

	owner := &models.User{Email: "owner@example.com"}
	other := &models.User{Email: "other@example.com"}
	assert.NilError(t, CreateUser(db, owner))
	assert.NilError(t, CreateUser(db, other))

	app.UserID = owner.ID
	assert.NilError(t, SaveCertificate(db, app))

	team := &models.Role{Name: "team-payments@example.com"}
	assert.NilError(t, CreateRole(db, team))
	assert.NilError(t, AddRoleMember(db, team, owner))

	shop.Owner = "team-payments@example.com"
	assert.NilError(t, SaveCertificate(db, shop))

	dest := &models.Destination{Name: "elb", Plugin: "aws-iam"}
	assert.NilError(t, CreateDestination(db, dest))
	_, err := UpdateCertificate(db, api.ID, UpdateCertificateRequest{
		Owner:          api.Owner,
		Active:         api.Active,
		DestinationIDs: []uid.ID{dest.ID},
	})
	assert.NilError(t, err)

	names := func(certs []models.Certificate) []string {
		result := make([]string, 0, len(certs))
		for _, c := range certs {
			result = append(result, c.Name)
		}
		return result
	}

	t.Run("filter by field", func(t *testing.T) {
		certs, err := RenderCertificates(db, nil, CertificatesQuery{Filter: "name;app-"}, nil)
		assert.NilError(t, err)
		assert.DeepEqual(t, names(certs), []string{app.Name})
	})

	t.Run("filter by issuer matches issuer string", func(t *testing.T) {
		certs, err := RenderCertificates(db, nil, CertificatesQuery{Filter: "issuer;vendor"}, nil)
		assert.NilError(t, err)
		assert.DeepEqual(t, names(certs), []string{shop.Name})
	})

	t.Run("filter by issuer matches authority name", func(t *testing.T) {
		certs, err := RenderCertificates(db, nil, CertificatesQuery{Filter: "issuer;internal"}, nil)
		assert.NilError(t, err)
		// app through its authority, and both app and api through the
		// issuer string
		assert.Assert(t, is.Contains(names(certs), app.Name))
		assert.Assert(t, is.Contains(names(certs), api.Name))
	})

	t.Run("issuer filter skips other axes", func(t *testing.T) {
		certs, err := RenderCertificates(db, nil, CertificatesQuery{
			Filter:    "issuer;vendor",
			TimeRange: 4,
		}, nil)
		assert.NilError(t, err)
		// shop expires outside the window but is still returned
		assert.DeepEqual(t, names(certs), []string{shop.Name})
	})

	t.Run("filter by active", func(t *testing.T) {
		certs, err := RenderCertificates(db, nil, CertificatesQuery{Filter: "active;1"}, nil)
		assert.NilError(t, err)
		assert.DeepEqual(t, names(certs), []string{api.Name, app.Name})
	})

	t.Run("filter by destination", func(t *testing.T) {
		certs, err := RenderCertificates(db, nil, CertificatesQuery{DestinationID: dest.ID}, nil)
		assert.NilError(t, err)
		assert.DeepEqual(t, names(certs), []string{api.Name})
	})

	t.Run("filter by unknown field", func(t *testing.T) {
		_, err := RenderCertificates(db, nil, CertificatesQuery{Filter: "sekrit;x"}, nil)
		var attrErr internal.AttrNotFoundError
		assert.Assert(t, errors.As(err, &attrErr))
		assert.Equal(t, attrErr.Field, "sekrit")
	})

	t.Run("show restricts to owned and role owned", func(t *testing.T) {
		certs, err := RenderCertificates(db, owner, CertificatesQuery{Show: true}, nil)
		assert.NilError(t, err)
		// app directly, shop through the team role
		assert.DeepEqual(t, names(certs), []string{app.Name, shop.Name})

		certs, err = RenderCertificates(db, other, CertificatesQuery{Show: true}, nil)
		assert.NilError(t, err)
		assert.Equal(t, len(certs), 0)
	})

	t.Run("time range window", func(t *testing.T) {
		certs, err := RenderCertificates(db, nil, CertificatesQuery{TimeRange: 4}, nil)
		assert.NilError(t, err)
		assert.DeepEqual(t, names(certs), []string{api.Name})
	})

	t.Run("sort and descending", func(t *testing.T) {
		certs, err := RenderCertificates(db, nil, CertificatesQuery{SortBy: "not_after", Descending: true}, nil)
		assert.NilError(t, err)
		assert.Equal(t, certs[len(certs)-1].Name, api.Name)
	})

	t.Run("sort by unknown field", func(t *testing.T) {
		_, err := RenderCertificates(db, nil, CertificatesQuery{SortBy: "body"}, nil)
		var attrErr internal.AttrNotFoundError
		assert.Assert(t, errors.As(err, &attrErr))
	})

	t.Run("pagination sets total count", func(t *testing.T) {
		p := &models.Pagination{Page: 1, Limit: 2}
		certs, err := RenderCertificates(db, nil, CertificatesQuery{}, p)
		assert.NilError(t, err)
		assert.Equal(t, len(certs), 2)
		assert.Equal(t, p.TotalCount, 3)
		assert.Equal(t, p.PageCount, 2)
	})
}
