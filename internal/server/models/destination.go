package models

// Destination is an external deployment target, such as a load balancer or
// an IAM server-certificate store, that certificates can be pushed to.
type Destination struct {
	Model

	Name        string `gorm:"uniqueIndex:idx_destinations_name"`
	Plugin      string
	Description string

	// Options is plugin-specific configuration, serialized as JSON.
	Options string
}
