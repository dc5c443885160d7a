package models

// Notification is an alerting rule attached to certificates, such as an
// expiry warning delivered over email. Delivery itself happens outside this
// system; only the association list is managed here.
type Notification struct {
	Model

	Name        string `gorm:"uniqueIndex:idx_notifications_name"`
	Plugin      string
	Description string
	Active      bool

	// Options is plugin-specific configuration, serialized as JSON.
	Options string
}
