package pki

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig configures the Vault PKI secrets engine backend.
type VaultConfig struct {
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"` // vault token... should authenticate as machine to vault instead?
	Namespace string `mapstructure:"namespace"`
	Mount     string `mapstructure:"mount"` // mounting point. defaults to /pki
	Role      string `mapstructure:"role"`
}

// VaultProvider issues certificates by submitting CSRs to a Vault PKI
// secrets engine sign endpoint.
type VaultProvider struct {
	VaultConfig
	client *vault.Client
}

func NewVaultProvider(cfg VaultConfig) (*VaultProvider, error) {
	if cfg.Mount == "" {
		cfg.Mount = "/pki"
	}
	if cfg.Role == "" {
		return nil, fmt.Errorf("vault: role is required")
	}

	c, err := vault.NewClient(&vault.Config{
		Address: cfg.Address,
	})
	if err != nil {
		return nil, err
	}

	c.SetToken(cfg.Token)

	if len(cfg.Namespace) > 0 {
		c.SetNamespace(cfg.Namespace)
	}

	return &VaultProvider{VaultConfig: cfg, client: c}, nil
}

// CreateCertificate signs the CSR through <mount>/sign/<role>. The vault
// client applies its own request timeout; ctx cancellation is not plumbed
// through the underlying client.
func (v *VaultProvider) CreateCertificate(_ context.Context, csrPEM []byte, opts IssueOptions) ([]byte, []byte, error) {
	path := fmt.Sprintf("%s/sign/%s", strings.TrimSuffix(v.Mount, "/"), v.Role)

	request := map[string]interface{}{
		"csr":         string(csrPEM),
		"common_name": opts.CommonName,
	}
	if len(opts.SubAltNames) > 0 {
		request["alt_names"] = strings.Join(opts.SubAltNames, ",")
	}
	if opts.ValidityDays != 0 {
		request["ttl"] = fmt.Sprintf("%dh", opts.ValidityDays*24)
	}

	sec, err := v.client.Logical().Write(path, request)
	if err != nil {
		return nil, nil, fmt.Errorf("vault sign: %w", err)
	}
	if sec == nil || sec.Data == nil {
		return nil, nil, fmt.Errorf("vault sign: empty response")
	}

	body, ok := sec.Data["certificate"].(string)
	if !ok {
		return nil, nil, fmt.Errorf("vault sign: certificate missing from response")
	}

	chain := chainFromResponse(sec.Data)

	return []byte(body), []byte(chain), nil
}

func chainFromResponse(data map[string]interface{}) string {
	if raw, ok := data["ca_chain"].([]interface{}); ok {
		parts := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	}

	if issuing, ok := data["issuing_ca"].(string); ok {
		return issuing
	}

	return ""
}
