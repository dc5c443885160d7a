package destsync

import (
	"context"
	"errors"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/certmint/certmint/internal"
	"github.com/certmint/certmint/internal/server/models"
)

type recordingPlugin struct {
	name string
	body string
	key  string
}

func (p *recordingPlugin) Upload(_ context.Context, name string, body, privateKey, chain []byte) error {
	p.name = name
	p.body = string(body)
	p.key = string(privateKey)
	return nil
}

func TestRegistryUpload(t *testing.T) {
	registry := NewRegistry()
	plugin := &recordingPlugin{}
	registry.Register("elb-east", plugin)

	dest := &models.Destination{Name: "elb-east", Plugin: "aws-iam"}

	t.Run("success", func(t *testing.T) {
		cert := &models.Certificate{
			Name:       "app-example-com",
			Body:       "the-body",
			PrivateKey: "the-key",
			Chain:      "the-chain",
		}

		err := registry.Upload(context.Background(), dest, cert)
		assert.NilError(t, err)
		assert.Equal(t, plugin.name, "app-example-com")
		assert.Equal(t, plugin.body, "the-body")
		assert.Equal(t, plugin.key, "the-key")
	})

	t.Run("missing private key", func(t *testing.T) {
		cert := &models.Certificate{Name: "imported", Body: "the-body"}

		err := registry.Upload(context.Background(), dest, cert)
		var distErr internal.InvalidDistributionError
		assert.Assert(t, errors.As(err, &distErr))
	})

	t.Run("unknown destination", func(t *testing.T) {
		other := &models.Destination{Name: "elb-west", Plugin: "aws-iam"}
		cert := &models.Certificate{Name: "x", Body: "b", PrivateKey: "k"}

		err := registry.Upload(context.Background(), other, cert)
		var unknownErr internal.UnknownProviderError
		assert.Assert(t, errors.As(err, &unknownErr))
	})
}
