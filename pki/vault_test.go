package pki

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gotest.tools/v3/assert"
)

func TestNewVaultProvider(t *testing.T) {
	t.Run("role is required", func(t *testing.T) {
		_, err := NewVaultProvider(VaultConfig{Address: "http://127.0.0.1:8200"})
		assert.ErrorContains(t, err, "role is required")
	})

	t.Run("mount defaults", func(t *testing.T) {
		provider, err := NewVaultProvider(VaultConfig{
			Address: "http://127.0.0.1:8200",
			Role:    "web",
		})
		assert.NilError(t, err)
		assert.Equal(t, provider.Mount, "/pki")
	})
}

func TestVaultProviderCreateCertificate(t *testing.T) {
	var requestPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": {
				"certificate": "leaf-pem",
				"ca_chain": ["intermediate-pem", "root-pem"]
			}
		}`))
	}))
	t.Cleanup(server.Close)

	provider, err := NewVaultProvider(VaultConfig{
		Address: server.URL,
		Token:   "unit-test-token",
		Mount:   "pki_int",
		Role:    "web",
	})
	assert.NilError(t, err)

	body, chain, err := provider.CreateCertificate(context.Background(), []byte("csr-pem"), IssueOptions{
		CommonName:   "app.example.com",
		SubAltNames:  []string{"app.example.com"},
		ValidityDays: 30,
	})
	assert.NilError(t, err)

	assert.Equal(t, requestPath, "/v1/pki_int/sign/web")
	assert.Equal(t, string(body), "leaf-pem")
	assert.Equal(t, string(chain), "intermediate-pem\nroot-pem")
}

func TestChainFromResponse(t *testing.T) {
	t.Run("prefers ca_chain", func(t *testing.T) {
		chain := chainFromResponse(map[string]interface{}{
			"ca_chain":   []interface{}{"a", "b"},
			"issuing_ca": "c",
		})
		assert.Equal(t, chain, "a\nb")
	})

	t.Run("falls back to issuing_ca", func(t *testing.T) {
		chain := chainFromResponse(map[string]interface{}{"issuing_ca": "c"})
		assert.Equal(t, chain, "c")
	})

	t.Run("empty response", func(t *testing.T) {
		assert.Equal(t, chainFromResponse(map[string]interface{}{}), "")
	})
}
