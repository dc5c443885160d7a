// Package config loads the server configuration file and wires its
// declarative authority and destination entries into running plugin
// registries and database records.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
	"gorm.io/gorm"

	"github.com/certmint/certmint/internal"
	"github.com/certmint/certmint/internal/server/data"
	"github.com/certmint/certmint/internal/server/destsync"
	"github.com/certmint/certmint/internal/server/models"
	"github.com/certmint/certmint/pki"
)

// Authority declares a certificate authority backed by an issuer plugin.
// Options are plugin-specific and decoded by the plugin's own config type.
type Authority struct {
	Name    string                 `yaml:"name" validate:"required"`
	Plugin  string                 `yaml:"plugin" validate:"required"`
	Options map[string]interface{} `yaml:"options"`
}

// Destination declares a deployment target certificates can be pushed to.
type Destination struct {
	Name    string                 `yaml:"name" validate:"required"`
	Plugin  string                 `yaml:"plugin" validate:"required"`
	Options map[string]interface{} `yaml:"options"`
}

type Config struct {
	// DBFile is the sqlite database path. Ignored when PostgresDSN is set.
	DBFile      string `yaml:"dbFile"`
	PostgresDSN string `yaml:"pgDSN"`

	MetricsAddr string `yaml:"metricsAddr"`
	LogLevel    string `yaml:"logLevel"`

	Authorities  []Authority   `yaml:"authorities" validate:"dive"`
	Destinations []Destination `yaml:"destinations" validate:"dive"`
}

func Load(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(contents, config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, err
	}

	return config, nil
}

// BuildIssuerRegistry constructs an issuer plugin for each declared
// authority. Plugins are keyed by authority name because two authorities
// may use the same plugin kind with different options.
func BuildIssuerRegistry(authorities []Authority) (*pki.Registry, error) {
	registry := pki.NewRegistry()

	for _, a := range authorities {
		plugin, err := buildIssuerPlugin(a)
		if err != nil {
			return nil, fmt.Errorf("authority %q: %w", a.Name, err)
		}
		registry.Register(a.Name, plugin)
	}

	return registry, nil
}

func buildIssuerPlugin(a Authority) (pki.IssuerPlugin, error) {
	switch a.Plugin {
	case "selfsigned":
		cfg := pki.SelfSignedConfig{}
		if err := mapstructure.Decode(a.Options, &cfg); err != nil {
			return nil, err
		}
		return pki.NewSelfSignedProvider(cfg)
	case "vault":
		cfg := pki.VaultConfig{}
		if err := mapstructure.Decode(a.Options, &cfg); err != nil {
			return nil, err
		}
		return pki.NewVaultProvider(cfg)
	case "acme":
		cfg := pki.ACMEConfig{}
		if err := mapstructure.Decode(a.Options, &cfg); err != nil {
			return nil, err
		}
		return pki.NewACMEProvider(cfg)
	default:
		return nil, internal.UnknownProviderError{Name: a.Plugin}
	}
}

// BuildDestinationRegistry constructs a destination plugin for each
// declared deployment target, keyed by destination name.
func BuildDestinationRegistry(destinations []Destination) (*destsync.Registry, error) {
	registry := destsync.NewRegistry()

	for _, d := range destinations {
		switch d.Plugin {
		case "aws-iam":
			cfg := destsync.AWSIAMConfig{}
			if err := mapstructure.Decode(d.Options, &cfg); err != nil {
				return nil, fmt.Errorf("destination %q: %w", d.Name, err)
			}
			plugin, err := destsync.NewAWSIAMProvider(cfg)
			if err != nil {
				return nil, fmt.Errorf("destination %q: %w", d.Name, err)
			}
			registry.Register(d.Name, plugin)
		default:
			return nil, internal.UnknownProviderError{Name: d.Plugin}
		}
	}

	return registry, nil
}

// Import reconciles declared authorities and destinations into the
// database so that certificates can reference them by id.
func Import(db *gorm.DB, config *Config) error {
	for _, a := range config.Authorities {
		options, err := json.Marshal(a.Options)
		if err != nil {
			return err
		}

		authority, err := data.GetAuthority(db, data.ByName(a.Name))
		switch {
		case err == nil:
			authority.Plugin = a.Plugin
			authority.Options = string(options)
			if err := data.SaveAuthority(db, authority); err != nil {
				return err
			}
		case errors.Is(err, internal.ErrNotFound):
			authority = &models.Authority{Name: a.Name, Plugin: a.Plugin, Options: string(options)}
			if err := data.CreateAuthority(db, authority); err != nil {
				return err
			}
		default:
			return err
		}
	}

	for _, d := range config.Destinations {
		options, err := json.Marshal(d.Options)
		if err != nil {
			return err
		}

		destination, err := data.GetDestination(db, data.ByName(d.Name))
		switch {
		case err == nil:
			destination.Plugin = d.Plugin
			destination.Options = string(options)
			if err := data.SaveDestination(db, destination); err != nil {
				return err
			}
		case errors.Is(err, internal.ErrNotFound):
			destination = &models.Destination{Name: d.Name, Plugin: d.Plugin, Options: string(options)}
			if err := data.CreateDestination(db, destination); err != nil {
				return err
			}
		default:
			return err
		}
	}

	return nil
}
