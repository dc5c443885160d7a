package certificates

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/certmint/certmint/internal"
	"github.com/certmint/certmint/internal/logging"
	"github.com/certmint/certmint/internal/server/data"
	"github.com/certmint/certmint/internal/server/destsync"
	"github.com/certmint/certmint/internal/server/models"
	"github.com/certmint/certmint/pki"
	"github.com/certmint/certmint/uid"
)

// Service orchestrates certificate issuance and inventory management. All
// operations are request-scoped and synchronous; the only blocking call is
// the plugin signing step, which the caller bounds through ctx.
type Service struct {
	db       *gorm.DB
	registry *pki.Registry
	sync     *destsync.Registry
}

func NewService(db *gorm.DB, registry *pki.Registry, sync *destsync.Registry) *Service {
	return &Service{db: db, registry: registry, sync: sync}
}

// MintOptions are the issuance parameters for a new certificate.
type MintOptions struct {
	Authority    string
	Subject      SubjectOptions
	Extensions   ExtensionOptions
	ValidityDays int

	Owner       string
	Description string

	// Name overrides the generated certificate name.
	Name string

	DestinationIDs  []uid.ID
	NotificationIDs []uid.ID
}

// Mint generates a key and CSR, has the authority's plugin sign it, and
// persists the resulting record. Persistence happens here, before any
// association wiring, so that a certificate signed by a paid or rate-limited
// CA is durably recorded even if everything downstream fails.
//
// The private key is returned to the caller and stored on the record;
// it is never cached anywhere else. If signing fails the key is discarded
// with the request.
func (s *Service) Mint(ctx context.Context, user *models.User, opts MintOptions) (*models.Certificate, string, string, error) {
	authority, err := data.GetAuthority(s.db, data.ByName(opts.Authority))
	if err != nil {
		return nil, "", "", fmt.Errorf("authority %q: %w", opts.Authority, err)
	}

	// resolve the plugin before any cryptographic work; cheap to fail fast
	plugin, err := s.registry.Get(authority.Name)
	if err != nil {
		logging.L.Error().Err(err).Str("authority", authority.Name).Msg("resolving issuer plugin")
		return nil, "", "", err
	}

	csrPEM, keyPEM, err := CreateCSR(opts.Subject, opts.Extensions)
	if err != nil {
		logging.L.Error().Err(err).Msg("building CSR")
		return nil, "", "", err
	}

	issueOpts := pki.IssueOptions{
		Authority:    authority.Name,
		CommonName:   opts.Subject.CommonName,
		SubAltNames:  opts.Extensions.DNSNames(),
		ValidityDays: opts.ValidityDays,
		Creator:      user.Email,
		Owner:        opts.Owner,
	}

	body, chain, err := plugin.CreateCertificate(ctx, csrPEM, issueOpts)
	if err != nil {
		var paymentErr internal.IssuerPaymentRequiredError
		if !errors.As(err, &paymentErr) {
			err = internal.IssuerError{Authority: authority.Name, Err: err}
		}
		logging.L.Error().Err(err).Str("authority", authority.Name).Msg("issuing certificate")
		return nil, "", "", err
	}

	cert, err := models.NewCertificate(string(body), string(keyPEM), string(chain))
	if err != nil {
		return nil, "", "", fmt.Errorf("parsing issued certificate: %w", err)
	}

	if opts.Name != "" {
		cert.Name = opts.Name
	}
	cert.Creator = user.Email
	cert.UserID = user.ID
	cert.AuthorityID = &authority.ID
	cert.Active = true

	if err := data.CreateCertificate(s.db, cert); err != nil {
		return nil, "", "", err
	}

	return cert, string(keyPEM), string(chain), nil
}

// Create mints a certificate and wires up its ownership and associations.
// Each step persists separately, in order of importance: the signed
// material first, then owner and destinations, then notifications last.
// Notification wiring is the most failure-prone step and must never cause
// loss of the certificate itself, so a failure after minting returns the
// error alongside the already-persisted record.
func (s *Service) Create(ctx context.Context, user *models.User, opts MintOptions) (*models.Certificate, error) {
	cert, _, _, err := s.Mint(ctx, user, opts)
	if err != nil {
		return nil, err
	}

	cert.Owner = opts.Owner
	cert.Description = opts.Description

	updated, err := data.UpdateCertificate(s.db, cert.ID, data.UpdateCertificateRequest{
		Owner:           opts.Owner,
		Description:     opts.Description,
		Active:          true,
		DestinationIDs:  opts.DestinationIDs,
		NotificationIDs: opts.NotificationIDs,
	})
	if err != nil {
		logging.L.Warn().Err(err).
			Str("certificate", cert.Name).
			Msg("certificate persisted, but association wiring failed")
		return cert, err
	}

	s.pushToDestinations(ctx, updated)

	return updated, nil
}

// pushToDestinations uploads the certificate to each associated deployment
// target. Upload failures are logged and skipped; the certificate is
// already durable and a destination can be retried later.
func (s *Service) pushToDestinations(ctx context.Context, cert *models.Certificate) {
	if s.sync == nil {
		return
	}

	for i := range cert.Destinations {
		dest := &cert.Destinations[i]
		if err := s.sync.Upload(ctx, dest, cert); err != nil {
			logging.L.Error().Err(err).
				Str("certificate", cert.Name).
				Str("destination", dest.Name).
				Msg("uploading certificate to destination")
		}
	}
}

// ImportOptions describe a certificate created outside this system that
// should still be tracked. No private key is required.
type ImportOptions struct {
	Body    string
	Owner   string
	Creator string

	// Name overrides the generated name; existing certificates may not
	// follow the generated naming standard.
	Name string

	NotificationIDs []uid.ID
}

// Import records an externally issued certificate. The record has no
// authority reference, which marks it as imported.
func (s *Service) Import(opts ImportOptions) (*models.Certificate, error) {
	duplicates, err := data.FindCertificatesByBody(s.db, opts.Body)
	if err != nil {
		return nil, err
	}
	if len(duplicates) > 0 {
		return nil, fmt.Errorf("certificate body already tracked as %q: %w",
			duplicates[0].Name, internal.ErrDuplicate)
	}

	cert, err := models.NewCertificate(opts.Body, "", "")
	if err != nil {
		return nil, err
	}

	cert.Owner = opts.Owner
	cert.Creator = opts.Creator
	if opts.Name != "" {
		cert.Name = opts.Name
	}

	if err := data.CreateCertificate(s.db, cert); err != nil {
		return nil, err
	}

	if len(opts.NotificationIDs) > 0 {
		_, err = data.UpdateCertificate(s.db, cert.ID, data.UpdateCertificateRequest{
			Owner:           cert.Owner,
			Description:     cert.Description,
			Active:          cert.Active,
			NotificationIDs: opts.NotificationIDs,
		})
		if err != nil {
			return cert, err
		}
	}

	return cert, nil
}

// UploadOptions describe a pre-made certificate supplied with its key
// material by the caller.
type UploadOptions struct {
	Body       string
	PrivateKey string
	Chain      string

	Owner string
	Name  string

	DestinationIDs  []uid.ID
	NotificationIDs []uid.ID
}

// Upload records a pre-made certificate along with its private key, and
// wires up its associations.
func (s *Service) Upload(ctx context.Context, user *models.User, opts UploadOptions) (*models.Certificate, error) {
	cert, err := models.NewCertificate(opts.Body, opts.PrivateKey, opts.Chain)
	if err != nil {
		return nil, err
	}

	cert.Owner = opts.Owner
	cert.Creator = user.Email
	cert.UserID = user.ID
	if opts.Name != "" {
		cert.Name = opts.Name
	}

	if err := data.CreateCertificate(s.db, cert); err != nil {
		return nil, err
	}

	updated, err := data.UpdateCertificate(s.db, cert.ID, data.UpdateCertificateRequest{
		Owner:           opts.Owner,
		Active:          cert.Active,
		DestinationIDs:  opts.DestinationIDs,
		NotificationIDs: opts.NotificationIDs,
	})
	if err != nil {
		return cert, err
	}

	s.pushToDestinations(ctx, updated)

	return updated, nil
}

// Get retrieves a certificate by id.
func (s *Service) Get(id uid.ID) (*models.Certificate, error) {
	return data.GetCertificate(s.db, data.ByID(id))
}

// GetByName retrieves a certificate by its unique name.
func (s *Service) GetByName(name string) (*models.Certificate, error) {
	return data.GetCertificate(s.db, data.ByName(name))
}

// FindDuplicates returns tracked certificates whose body is byte-identical
// to body.
func (s *Service) FindDuplicates(body string) ([]models.Certificate, error) {
	return data.FindCertificatesByBody(s.db, body)
}

// Update overwrites the certificate's mutable metadata and replaces its
// association sets. Body, key, and chain are write-once and unaffected.
func (s *Service) Update(id uid.ID, r data.UpdateCertificateRequest) (*models.Certificate, error) {
	return data.UpdateCertificate(s.db, id, r)
}

// Delete removes the certificate record entirely.
func (s *Service) Delete(id uid.ID) error {
	return data.DeleteCertificate(s.db, id)
}

// Render runs the filter/sort/paginate query over the inventory on behalf
// of user.
func (s *Service) Render(user *models.User, q data.CertificatesQuery, p *models.Pagination) ([]models.Certificate, error) {
	return data.RenderCertificates(s.db, user, q, p)
}

// Stats computes grouped certificate counts for fleet-wide reporting.
func (s *Service) Stats(opts data.StatsOptions) (*data.CertificateStats, error) {
	return data.CountCertificatesBy(s.db, opts)
}
