// Package pki defines the issuer plugin contract and the registry that maps
// authority backends to plugin implementations.
package pki

import (
	"context"
	"sync"

	"github.com/certmint/certmint/internal"
)

// IssueOptions carries the issuance parameters passed through to a plugin.
// Creator is injected by the minting workflow from the requesting identity.
type IssueOptions struct {
	// Authority is the name of the configured authority handling the order.
	Authority string

	CommonName  string
	SubAltNames []string

	// Validity is the requested certificate lifetime. Plugins may clamp it
	// to the backend's policy.
	ValidityDays int

	Creator string
	Owner   string
}

// IssuerPlugin is implemented once per certificate-authority backend. Given
// a PEM-encoded CSR it returns the signed certificate and its intermediate
// chain, both PEM-encoded.
//
// CreateCertificate blocks on network I/O for remote backends; callers
// control cancellation through ctx.
type IssuerPlugin interface {
	CreateCertificate(ctx context.Context, csrPEM []byte, opts IssueOptions) (body, chain []byte, err error)
}

// Registry maps plugin names to issuer plugins. It is populated during
// process startup and read-only afterwards; lookups are safe for concurrent
// use by simultaneous mint requests.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]IssuerPlugin
}

func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]IssuerPlugin)}
}

// Register binds plugin under name. Re-registering a name replaces the
// previous binding; this happens only during startup.
func (r *Registry) Register(name string, plugin IssuerPlugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[name] = plugin
}

// Get resolves a plugin by exact name match.
func (r *Registry) Get(name string) (IssuerPlugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, ok := r.plugins[name]
	if !ok {
		return nil, internal.UnknownProviderError{Name: name}
	}
	return plugin, nil
}

// Names returns the registered plugin names, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	return names
}
