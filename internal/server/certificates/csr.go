// Package certificates implements the certificate issuance workflow: CSR
// construction, minting through an authority plugin, and the import, update,
// query, and reporting operations over the certificate inventory.
package certificates

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"

	"github.com/certmint/certmint/internal"
)

// csrKeyBits is fixed policy, not configuration: the authority plugins all
// assume RSA-2048 CSRs.
const csrKeyBits = 2048

// SubjectOptions are the distinguished-name attributes of a CSR. All six are
// required; there are no defaults.
type SubjectOptions struct {
	CommonName         string
	Organization       string
	OrganizationalUnit string
	Country            string
	State              string
	Location           string
}

// AltNameTypeDNS is the only alternative-name type the CSR builder encodes.
// Names of any other type are ignored.
const AltNameTypeDNS = "DNSName"

type AltName struct {
	NameType string
	Value    string
}

// ExtensionOptions are the requested CSR extensions. Subject alternative
// names are the only extension kind currently supported.
type ExtensionOptions struct {
	SubAltNames []AltName
}

var (
	oidCommonName         = asn1.ObjectIdentifier{2, 5, 4, 3}
	oidOrganization       = asn1.ObjectIdentifier{2, 5, 4, 10}
	oidOrganizationalUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
	oidCountry            = asn1.ObjectIdentifier{2, 5, 4, 6}
	oidState              = asn1.ObjectIdentifier{2, 5, 4, 8}
	oidLocality           = asn1.ObjectIdentifier{2, 5, 4, 7}

	oidExtensionBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}
	oidExtensionSubjectAltName   = asn1.ObjectIdentifier{2, 5, 29, 17}
)

// CreateCSR generates a fresh RSA-2048 key pair and a PKCS#10 certificate
// signing request for it. The subject attributes are encoded in a fixed
// order (CN, O, OU, C, ST, L); some authorities reject requests with the
// attributes reordered.
//
// The returned private key exists nowhere else. It is never logged or
// persisted here; the caller is solely responsible for it.
func CreateCSR(subject SubjectOptions, extensions ExtensionOptions) (csrPEM, keyPEM []byte, err error) {
	if err := validateSubject(subject); err != nil {
		return nil, nil, err
	}

	key, err := rsa.GenerateKey(rand.Reader, csrKeyBits)
	if err != nil {
		return nil, nil, internal.CryptoOperationError{Op: "generate key", Err: err}
	}

	template := &x509.CertificateRequest{
		Subject: pkix.Name{
			ExtraNames: []pkix.AttributeTypeAndValue{
				{Type: oidCommonName, Value: subject.CommonName},
				{Type: oidOrganization, Value: subject.Organization},
				{Type: oidOrganizationalUnit, Value: subject.OrganizationalUnit},
				{Type: oidCountry, Value: subject.Country},
				{Type: oidState, Value: subject.State},
				{Type: oidLocality, Value: subject.Location},
			},
		},
		SignatureAlgorithm: x509.SHA256WithRSA,
		ExtraExtensions: []pkix.Extension{
			{
				Id:       oidExtensionBasicConstraints,
				Critical: true,
				// BasicConstraints SEQUENCE with cA defaulted to FALSE
				Value: []byte{0x30, 0x00},
			},
		},
	}

	sanValue, err := marshalDNSNames(extensions.SubAltNames)
	if err != nil {
		return nil, nil, internal.CryptoOperationError{Op: "encode subjectAltName", Err: err}
	}
	if sanValue != nil {
		template.ExtraExtensions = append(template.ExtraExtensions, pkix.Extension{
			Id:       oidExtensionSubjectAltName,
			Critical: true,
			Value:    sanValue,
		})
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, template, key)
	if err != nil {
		return nil, nil, internal.CryptoOperationError{Op: "sign CSR", Err: err}
	}

	csrPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der})

	// the legacy container format, because some downstream load balancer
	// integrations reject PKCS#8
	keyPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	return csrPEM, keyPEM, nil
}

func validateSubject(subject SubjectOptions) error {
	required := []struct {
		field string
		value string
	}{
		{"commonName", subject.CommonName},
		{"organization", subject.Organization},
		{"organizationalUnit", subject.OrganizationalUnit},
		{"country", subject.Country},
		{"state", subject.State},
		{"location", subject.Location},
	}

	for _, attr := range required {
		if attr.value == "" {
			return internal.ConfigurationError{Field: attr.field}
		}
	}
	return nil
}

// marshalDNSNames encodes the DNS-typed names as an X.509 GeneralNames
// value. Returns nil when no DNS names are present.
func marshalDNSNames(names []AltName) ([]byte, error) {
	var rawValues []asn1.RawValue
	for _, name := range names {
		if name.NameType != AltNameTypeDNS {
			continue
		}
		rawValues = append(rawValues, asn1.RawValue{
			Tag:   2, // dNSName
			Class: asn1.ClassContextSpecific,
			Bytes: []byte(name.Value),
		})
	}

	if len(rawValues) == 0 {
		return nil, nil
	}
	return asn1.Marshal(rawValues)
}

// DNSNames returns the DNS-typed alternative names, for plugins that submit
// identifiers out of band rather than reading the CSR.
func (e ExtensionOptions) DNSNames() []string {
	var result []string
	for _, name := range e.SubAltNames {
		if name.NameType == AltNameTypeDNS {
			result = append(result, name.Value)
		}
	}
	return result
}
