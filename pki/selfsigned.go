package pki

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path"
	"time"
)

const day = 24 * time.Hour

// SelfSignedConfig configures the in-process signing backend.
type SelfSignedConfig struct {
	// StoragePath is the directory holding the CA certificate and key.
	StoragePath string `mapstructure:"storagePath"`

	// CommonName of the generated root, defaults to "Certmint Root CA".
	CommonName string `mapstructure:"commonName"`

	// CAValidityDays is the lifetime of a newly created root.
	CAValidityDays int `mapstructure:"caValidityDays"`

	// DefaultValidityDays is the leaf lifetime used when the issue options
	// don't request one.
	DefaultValidityDays int `mapstructure:"defaultValidityDays"`
}

// SelfSignedProvider signs CSRs with a locally held CA. It exists for test
// and development authorities where no external CA is reachable.
type SelfSignedProvider struct {
	SelfSignedConfig

	caCert    *x509.Certificate
	caCertPEM []byte
	caKey     *rsa.PrivateKey
}

func NewSelfSignedProvider(cfg SelfSignedConfig) (*SelfSignedProvider, error) {
	if cfg.CommonName == "" {
		cfg.CommonName = "Certmint Root CA"
	}
	if cfg.CAValidityDays == 0 {
		cfg.CAValidityDays = 3650
	}
	if cfg.DefaultValidityDays == 0 {
		cfg.DefaultValidityDays = 365
	}

	p := &SelfSignedProvider{SelfSignedConfig: cfg}
	if err := p.loadFromDisk(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err := p.createCA(); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// createCA generates a new RSA root and persists it to StoragePath.
func (p *SelfSignedProvider) createCA() error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("generating CA key: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: p.CommonName},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Duration(p.CAValidityDays) * day),
		KeyUsage: x509.KeyUsageCertSign |
			x509.KeyUsageCRLSign |
			x509.KeyUsageDigitalSignature,
		IsCA:                  true,
		BasicConstraintsValid: true,
	}

	raw, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("creating CA certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(raw)
	if err != nil {
		return fmt.Errorf("parsing self-created certificate: %w", err)
	}

	p.caCert = cert
	p.caKey = key
	p.caCertPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: raw})

	return p.saveToDisk()
}

// CreateCertificate signs the CSR with the local CA. The chain returned is
// the CA certificate itself.
func (p *SelfSignedProvider) CreateCertificate(ctx context.Context, csrPEM []byte, opts IssueOptions) ([]byte, []byte, error) {
	block, _ := pem.Decode(csrPEM)
	if block == nil {
		return nil, nil, fmt.Errorf("no PEM data found in CSR")
	}

	csr, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing CSR: %w", err)
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, nil, fmt.Errorf("CSR signature check: %w", err)
	}

	validity := opts.ValidityDays
	if validity == 0 {
		validity = p.DefaultValidityDays
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, nil, err
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               csr.Subject,
		DNSNames:              csr.DNSNames,
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Duration(validity) * day),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	raw, err := x509.CreateCertificate(rand.Reader, template, p.caCert, csr.PublicKey, p.caKey)
	if err != nil {
		return nil, nil, fmt.Errorf("signing certificate: %w", err)
	}

	body := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: raw})

	return body, p.caCertPEM, nil
}

func randomSerial() (*big.Int, error) {
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)

	serial, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, fmt.Errorf("creating random serial: %w", err)
	}
	return serial, nil
}

func (p *SelfSignedProvider) saveToDisk() error {
	if err := os.MkdirAll(p.StoragePath, 0o700); err != nil {
		return fmt.Errorf("creating directory %q: %w", p.StoragePath, err)
	}

	err := writePEMToFile(path.Join(p.StoragePath, "ca.crt"), &pem.Block{
		Type:  "CERTIFICATE",
		Bytes: p.caCert.Raw,
	})
	if err != nil {
		return err
	}

	return writePEMToFile(path.Join(p.StoragePath, "ca.key"), &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(p.caKey),
	})
}

func (p *SelfSignedProvider) loadFromDisk() error {
	certPEM, err := os.ReadFile(path.Join(p.StoragePath, "ca.crt"))
	if err != nil {
		return err
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return fmt.Errorf("no PEM data in CA certificate file")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return fmt.Errorf("parsing CA certificate: %w", err)
	}

	keyPEM, err := os.ReadFile(path.Join(p.StoragePath, "ca.key"))
	if err != nil {
		return err
	}

	block, _ = pem.Decode(keyPEM)
	if block == nil {
		return fmt.Errorf("no PEM data in CA key file")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("parsing CA key: %w", err)
	}

	p.caCert = cert
	p.caKey = key
	p.caCertPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})

	return nil
}

func writePEMToFile(file string, b *pem.Block) error {
	f, err := os.OpenFile(file, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", file, err)
	}

	if err := pem.Encode(f, b); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", file, err)
	}

	return f.Close()
}
