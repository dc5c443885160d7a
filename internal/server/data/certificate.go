package data

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/certmint/certmint/internal"
	"github.com/certmint/certmint/internal/server/models"
	"github.com/certmint/certmint/uid"
)

// certificateFields whitelists the certificate attributes that may be used
// in free-text filters and sort clauses, mapped to their column names. Any
// field outside this map fails with internal.AttrNotFoundError.
var certificateFields = map[string]string{
	"name":        "name",
	"owner":       "owner",
	"issuer":      "issuer",
	"status":      "status",
	"description": "description",
	"active":      "active",
	"not_after":   "not_after",
	"not_before":  "not_before",
	"created_at":  "created_at",
}

func validateCertificate(cert *models.Certificate) error {
	if cert.Name == "" {
		return fmt.Errorf("name is required")
	}
	if cert.Body == "" {
		return fmt.Errorf("body is required")
	}
	return nil
}

func CreateCertificate(db *gorm.DB, cert *models.Certificate) error {
	if err := validateCertificate(cert); err != nil {
		return err
	}
	return add(db, cert)
}

func SaveCertificate(db *gorm.DB, cert *models.Certificate) error {
	if err := validateCertificate(cert); err != nil {
		return err
	}
	return save(db, cert)
}

func GetCertificate(db *gorm.DB, selectors ...SelectorFunc) (*models.Certificate, error) {
	return get[models.Certificate](db, selectors...)
}

func ListCertificates(db *gorm.DB, p *models.Pagination, selectors ...SelectorFunc) ([]models.Certificate, error) {
	return list[models.Certificate](db, p, selectors...)
}

func DeleteCertificate(db *gorm.DB, id uid.ID) error {
	cert := &models.Certificate{Model: models.Model{ID: id}}
	if err := db.Model(cert).Association("Destinations").Clear(); err != nil {
		return err
	}
	if err := db.Model(cert).Association("Notifications").Clear(); err != nil {
		return err
	}
	return remove[models.Certificate](db, id)
}

// FindCertificatesByBody returns every certificate whose stored body is
// byte-identical to body. This is the most reliable way to determine whether
// a certificate is already tracked.
func FindCertificatesByBody(db *gorm.DB, body string) ([]models.Certificate, error) {
	result := make([]models.Certificate, 0)
	err := db.Where("body = ?", body).Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateCertificateRequest carries the mutable fields of a certificate.
// Owner, Description, and Active overwrite unconditionally; the association
// lists replace the current associations entirely.
type UpdateCertificateRequest struct {
	Owner           string
	Description     string
	Active          bool
	DestinationIDs  []uid.ID
	NotificationIDs []uid.ID
}

// UpdateCertificate applies r to the certificate with the given id. The
// certificate body, private key, and chain are never modified here; they are
// write-once.
func UpdateCertificate(db *gorm.DB, id uid.ID, r UpdateCertificateRequest) (*models.Certificate, error) {
	cert, err := GetCertificate(db, ByID(id))
	if err != nil {
		return nil, err
	}

	cert.Owner = r.Owner
	cert.Description = r.Description
	cert.Active = r.Active

	if err := setCertificateDestinations(db, cert, r.DestinationIDs); err != nil {
		return nil, err
	}
	if err := setCertificateNotifications(db, cert, r.NotificationIDs); err != nil {
		return nil, err
	}

	if err := save(db, cert); err != nil {
		return nil, err
	}
	return cert, nil
}

// setCertificateDestinations replaces the certificate's destination set with
// the given ids. gorm computes the difference between the current and the
// requested set, adding and removing join rows as needed.
func setCertificateDestinations(db *gorm.DB, cert *models.Certificate, ids []uid.ID) error {
	dests, err := list[models.Destination](db, nil, ByIDs(ids))
	if err != nil {
		return err
	}
	if len(dests) != len(ids) {
		return fmt.Errorf("destination %w", internal.ErrNotFound)
	}
	return db.Model(cert).Association("Destinations").Replace(&dests)
}

func setCertificateNotifications(db *gorm.DB, cert *models.Certificate, ids []uid.ID) error {
	notifications, err := list[models.Notification](db, nil, ByIDs(ids))
	if err != nil {
		return err
	}
	if len(notifications) != len(ids) {
		return fmt.Errorf("notification %w", internal.ErrNotFound)
	}
	return db.Model(cert).Association("Notifications").Replace(&notifications)
}

// CertificatesQuery is the set of independent filter axes applied by
// RenderCertificates. All axes combine conjunctively.
type CertificatesQuery struct {
	// Filter is a semicolon-delimited free-text filter. A recognized leading
	// term (issuer, destination, active) selects special handling; any other
	// term filters a whitelisted field by partial match.
	Filter string

	// Show restricts results to certificates owned by the calling user
	// directly, or owned by any role the user belongs to.
	Show bool

	DestinationID  uid.ID
	NotificationID uid.ID

	// TimeRange restricts results to certificates whose not_after falls
	// between now and now plus this many weeks.
	TimeRange int

	SortBy     string
	Descending bool
}

// RenderCertificates builds the composable inventory query: free-text
// filter, ownership visibility, association membership, and expiry window,
// then sorts and paginates.
func RenderCertificates(db *gorm.DB, user *models.User, q CertificatesQuery, p *models.Pagination) ([]models.Certificate, error) {
	query := db.Model(&models.Certificate{})

	if q.Filter != "" {
		terms := strings.SplitN(q.Filter, ";", 2)
		value := ""
		if len(terms) > 1 {
			value = terms[1]
		}

		switch terms[0] {
		case "issuer":
			// the issuer stored on the certificate is not always reliable,
			// so match it against the configured authorities as well
			sub := db.Model(&models.Authority{}).Select("id").
				Where("LOWER(name) LIKE LOWER(?)", contains(value))
			query = query.Where(
				"LOWER(issuer) LIKE LOWER(?) OR authority_id IN (?)",
				contains(value), sub,
			)
			// issuer search intentionally skips the remaining filter axes
			return sortAndPage(query, q, p)
		case "destination":
			destID, err := uid.Parse([]byte(value))
			if err != nil {
				return nil, fmt.Errorf("parsing destination filter: %w", err)
			}
			query = query.Where("id IN (?)", destinationMembers(db, destID))
		case "active":
			query = query.Where("active = ?", value)
		default:
			column, ok := certificateFields[terms[0]]
			if !ok {
				return nil, internal.AttrNotFoundError{Field: terms[0]}
			}
			query = query.Where(
				fmt.Sprintf("LOWER(%v) LIKE LOWER(?)", column), contains(value),
			)
		}
	}

	if q.Show {
		roleNames := db.Model(&models.Role{}).Select("roles.name").
			Joins("JOIN user_roles ON user_roles.role_id = roles.id").
			Where("user_roles.user_id = ?", user.ID)
		query = query.Where("user_id = ? OR owner IN (?)", user.ID, roleNames)
	}

	if q.DestinationID != 0 {
		query = query.Where("id IN (?)", destinationMembers(db, q.DestinationID))
	}

	if q.NotificationID != 0 {
		sub := db.Table("certificate_notifications").Select("certificate_id").
			Where("notification_id = ?", q.NotificationID)
		query = query.Where("id IN (?)", sub)
	}

	if q.TimeRange != 0 {
		now := time.Now()
		to := now.AddDate(0, 0, 7*q.TimeRange)
		query = query.Where("not_after >= ? AND not_after <= ?", now, to)
	}

	return sortAndPage(query, q, p)
}

// destinationMembers returns a sub-query selecting the ids of certificates
// associated with the destination.
func destinationMembers(db *gorm.DB, destinationID uid.ID) *gorm.DB {
	return db.Table("certificate_destinations").Select("certificate_id").
		Where("destination_id = ?", destinationID)
}

func contains(value string) string {
	return "%" + value + "%"
}

func sortAndPage(query *gorm.DB, q CertificatesQuery, p *models.Pagination) ([]models.Certificate, error) {
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "name"
	}
	column, ok := certificateFields[sortBy]
	if !ok {
		return nil, internal.AttrNotFoundError{Field: sortBy}
	}

	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}
	query = query.Order(fmt.Sprintf("%v %v", column, direction))

	if p != nil {
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return nil, err
		}
		p.SetTotalCount(int(count))

		query = ByPagination(*p)(query)
	}

	result := make([]models.Certificate, 0)
	if err := query.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}
