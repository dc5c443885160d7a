package models

// Authority is a configured certificate-authority backend. Plugin selects the
// issuer plugin in the registry, and Options carries plugin-specific
// configuration that is opaque to the rest of the system.
type Authority struct {
	Model

	Name        string `gorm:"uniqueIndex:idx_authorities_name"`
	Plugin      string
	Description string
	Owner       string

	// Options is plugin-specific configuration, serialized as JSON. It is
	// decoded by the plugin itself at registration time.
	Options string
}
