package pki

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/crypto/acme"

	"github.com/certmint/certmint/internal"
)

// ACMEConfig configures an ACME (RFC 8555) certificate authority backend.
type ACMEConfig struct {
	// DirectoryURL of the ACME server.
	DirectoryURL string `mapstructure:"directoryURL"`

	// AccountKeyFile is a PEM-encoded private key for a registered account.
	AccountKeyFile string `mapstructure:"accountKeyFile"`
}

// ACMEProvider orders certificates from an ACME certificate authority. The
// account is expected to hold valid authorizations for the requested
// identifiers already; challenge solving is handled outside this system.
type ACMEProvider struct {
	ACMEConfig
	client *acme.Client
}

func NewACMEProvider(cfg ACMEConfig) (*ACMEProvider, error) {
	keyPEM, err := os.ReadFile(cfg.AccountKeyFile)
	if err != nil {
		return nil, fmt.Errorf("reading account key: %w", err)
	}

	key, err := parsePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing account key: %w", err)
	}

	return &ACMEProvider{
		ACMEConfig: cfg,
		client: &acme.Client{
			Key:          key,
			DirectoryURL: cfg.DirectoryURL,
		},
	}, nil
}

// CreateCertificate finalizes an ACME order with the CSR and downloads the
// issued chain. The first certificate of the chain is the leaf; the rest is
// returned as the intermediate chain.
func (p *ACMEProvider) CreateCertificate(ctx context.Context, csrPEM []byte, opts IssueOptions) ([]byte, []byte, error) {
	block, _ := pem.Decode(csrPEM)
	if block == nil {
		return nil, nil, fmt.Errorf("no PEM data found in CSR")
	}

	identifiers := opts.SubAltNames
	if len(identifiers) == 0 {
		identifiers = []string{opts.CommonName}
	}

	order, err := p.client.AuthorizeOrder(ctx, acme.DomainIDs(identifiers...))
	if err != nil {
		return nil, nil, acmeError(err)
	}

	order, err = p.client.WaitOrder(ctx, order.URI)
	if err != nil {
		return nil, nil, acmeError(err)
	}

	chain, _, err := p.client.CreateOrderCert(ctx, order.FinalizeURL, block.Bytes, true)
	if err != nil {
		return nil, nil, acmeError(err)
	}
	if len(chain) == 0 {
		return nil, nil, fmt.Errorf("acme: empty certificate chain")
	}

	body := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: chain[0]})

	var intermediates []byte
	for _, der := range chain[1:] {
		intermediates = append(intermediates,
			pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	}

	return body, intermediates, nil
}

// acmeError preserves the CA's original message when the server refuses an
// order for lack of funds or quota.
func acmeError(err error) error {
	var acmeErr *acme.Error
	if errors.As(err, &acmeErr) && acmeErr.StatusCode == http.StatusPaymentRequired {
		return internal.IssuerPaymentRequiredError{Message: acmeErr.Detail}
	}
	return err
}

func parsePrivateKeyPEM(keyPEM []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("no PEM data found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("unsupported key type %T", key)
	}
	return signer, nil
}
