package data

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/certmint/certmint/internal"
	"github.com/certmint/certmint/internal/server/models"
	"github.com/certmint/certmint/uid"
)

// expiryWindowWeeks is the forward-looking window used by the not_after
// metric: how many certificates per issuer expire within it.
const expiryWindowWeeks = 32

// CertificateStats groups certificate counts by an attribute. Labels and
// Values are parallel sequences, in the order produced by the grouping.
type CertificateStats struct {
	Labels []string
	Values []int
}

// StatsOptions selects the metric and optional restrictions for
// CountCertificatesBy.
type StatsOptions struct {
	// Metric is the certificate attribute to group by. The special metric
	// not_after groups by issuer, restricted to certificates expiring within
	// the next 32 weeks.
	Metric string

	// ActiveListeners restricts the count to certificates referenced by at
	// least one listener.
	ActiveListeners bool

	// DestinationID restricts the count to certificates associated with the
	// destination.
	DestinationID uid.ID
}

// CountCertificatesBy computes grouped certificate counts for fleet-wide
// reporting.
func CountCertificatesBy(db *gorm.DB, opts StatsOptions) (*CertificateStats, error) {
	query := db.Model(&models.Certificate{})

	if opts.ActiveListeners {
		query = query.Where(
			"EXISTS (SELECT 1 FROM listeners WHERE listeners.certificate_id = certificates.id)",
		)
	}

	if opts.DestinationID != 0 {
		query = query.Where("id IN (?)", destinationMembers(db, opts.DestinationID))
	}

	groupBy := ""
	switch opts.Metric {
	case "not_after":
		now := time.Now()
		to := now.AddDate(0, 0, 7*expiryWindowWeeks)
		query = query.Where("not_after >= ? AND not_after <= ?", now, to)
		groupBy = "issuer"
	default:
		column, ok := certificateFields[opts.Metric]
		if !ok {
			return nil, internal.AttrNotFoundError{Field: opts.Metric}
		}
		groupBy = column
	}

	rows, err := query.
		Select(fmt.Sprintf("%v AS label, COUNT(id) AS total", groupBy)).
		Group(groupBy).
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &CertificateStats{}
	for rows.Next() {
		var label string
		var total int
		if err := rows.Scan(&label, &total); err != nil {
			return nil, err
		}
		stats.Labels = append(stats.Labels, label)
		stats.Values = append(stats.Values, total)
	}

	return stats, rows.Err()
}
