package pki

import (
	"context"
	"errors"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/certmint/certmint/internal"
)

type noopPlugin struct{}

func (noopPlugin) CreateCertificate(_ context.Context, _ []byte, _ IssueOptions) ([]byte, []byte, error) {
	return nil, nil, nil
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register("internal", noopPlugin{})
	registry.Register("external", noopPlugin{})

	t.Run("get", func(t *testing.T) {
		plugin, err := registry.Get("internal")
		assert.NilError(t, err)
		assert.Assert(t, plugin != nil)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := registry.Get("wrong")

		var unknownErr internal.UnknownProviderError
		assert.Assert(t, errors.As(err, &unknownErr))
		assert.Equal(t, unknownErr.Name, "wrong")
	})

	t.Run("names", func(t *testing.T) {
		names := registry.Names()
		assert.Equal(t, len(names), 2)
		assert.Assert(t, is.Contains(names, "internal"))
		assert.Assert(t, is.Contains(names, "external"))
	})
}
