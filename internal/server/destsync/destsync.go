// Package destsync pushes issued certificates out to the systems that
// terminate TLS with them. Each deployment target type is a plugin keyed
// by name; destinations reference a plugin plus per-destination options.
package destsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/certmint/certmint/internal"
	"github.com/certmint/certmint/internal/server/models"
)

// Plugin uploads certificate material to one kind of deployment target.
type Plugin interface {
	// Upload pushes the named certificate to the target. privateKey may
	// be required by the target; callers validate that before invoking.
	Upload(ctx context.Context, name string, body, privateKey, chain []byte) error
}

// Registry maps destination names to their configured plugins. Plugins
// are registered per destination because options like region or path
// differ between targets of the same kind.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

func NewRegistry() *Registry {
	return &Registry{plugins: map[string]Plugin{}}
}

func (r *Registry) Register(name string, p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[name] = p
}

func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[name]
	if !ok {
		return nil, internal.UnknownProviderError{Name: name}
	}
	return p, nil
}

// Upload pushes cert to the deployment target described by dest. Targets
// install the certificate for serving, so a record tracked without its
// private key cannot be uploaded.
func (r *Registry) Upload(ctx context.Context, dest *models.Destination, cert *models.Certificate) error {
	plugin, err := r.Get(dest.Name)
	if err != nil {
		return fmt.Errorf("destination %q: %w", dest.Name, err)
	}

	if cert.PrivateKey == "" {
		return internal.InvalidDistributionError{Field: "private key"}
	}

	return plugin.Upload(ctx, cert.Name,
		[]byte(cert.Body), []byte(cert.PrivateKey), []byte(cert.Chain))
}
