package models

import "github.com/certmint/certmint/uid"

// Listener is a load-balancer listener that terminates traffic with a
// certificate. Secure protocols require a certificate; plain protocols must
// not reference one.
type Listener struct {
	Model

	Protocol string
	Port     int

	CertificateID *uid.ID
	DestinationID uid.ID
}

// RequiresCertificate reports whether the listener protocol terminates TLS.
func (l *Listener) RequiresCertificate() bool {
	switch l.Protocol {
	case "HTTPS", "SSL", "TLS":
		return true
	}
	return false
}
