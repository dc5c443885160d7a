package models

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/certmint/certmint/uid"
)

// Certificate is a tracked X.509 certificate. Body, PrivateKey, and Chain are
// write-once: they are set when the record is created and never mutated.
// A certificate with a non-nil AuthorityID was minted through an issuer
// plugin; one without was imported or uploaded from outside.
type Certificate struct {
	Model

	Name string `gorm:"uniqueIndex:idx_certificates_name"`

	Body       string
	PrivateKey string
	Chain      string

	Issuer    string
	NotBefore time.Time
	NotAfter  time.Time

	Owner       string
	Creator     string
	Active      bool
	Description string
	Status      string

	AuthorityID *uid.ID
	UserID      uid.ID

	Destinations  []Destination  `gorm:"many2many:certificate_destinations"`
	Notifications []Notification `gorm:"many2many:certificate_notifications"`
}

// NewCertificate builds a certificate record from PEM-encoded material. The
// issuer, validity window, and default name are computed by parsing body.
// The key and chain may be empty.
func NewCertificate(body, privateKey, chain string) (*Certificate, error) {
	parsed, err := ParseCertificatePEM(body)
	if err != nil {
		return nil, err
	}

	cert := &Certificate{
		Body:       body,
		PrivateKey: privateKey,
		Chain:      chain,
		Issuer:     issuerString(parsed),
		NotBefore:  parsed.NotBefore,
		NotAfter:   parsed.NotAfter,
		Status:     "unknown",
	}
	cert.Name = defaultName(parsed)

	return cert, nil
}

// ParseCertificatePEM decodes the first PEM block in body and parses it as an
// X.509 certificate.
func ParseCertificatePEM(body string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(body))
	if block == nil {
		return nil, fmt.Errorf("no PEM data found in certificate body")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing certificate: %w", err)
	}

	return cert, nil
}

func issuerString(cert *x509.Certificate) string {
	if cert.Issuer.CommonName != "" {
		return cert.Issuer.CommonName
	}
	return cert.Issuer.String()
}

// defaultName generates a unique human readable name from the certificate
// subject. Wildcards are not valid in names, so they become the word "star".
func defaultName(cert *x509.Certificate) string {
	cn := strings.ReplaceAll(cert.Subject.CommonName, "*", "star")
	cn = strings.ReplaceAll(cn, ".", "-")
	issuer := strings.ReplaceAll(issuerString(cert), " ", "")

	return fmt.Sprintf("%s-%s-%d%02d%02d", cn, issuer,
		cert.NotAfter.Year(), cert.NotAfter.Month(), cert.NotAfter.Day())
}
