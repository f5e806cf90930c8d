package permission

import "context"

// Capability is one notification right requested from the OS.
type Capability string

const (
	CapabilityAlert         Capability = "alert"
	CapabilityBadge         Capability = "badge"
	CapabilitySound         Capability = "sound"
	CapabilityCriticalAlert Capability = "critical-alert"
)

// Status is the raw answer from the OS permission gateway.
//
// CriticalAlerts is the platform's separate critical-alert entitlement.
// It is nil on platforms that have no such concept, and may be nil even on
// platforms that do when the detailed permission object omits it (which
// reads as "not allowed").
type Status struct {
	Granted        bool
	CanAskAgain    bool
	CriticalAlerts *bool
}

// Action is one button attached to a notification category.
type Action struct {
	ID    string
	Title string
}

// Category is a named group of notification actions registered with the OS.
type Category struct {
	Name    string
	Actions []Action
}

// Gateway abstracts the OS notification-permission surface. Implementations
// live outside this package; errors are mapped, never propagated raw.
type Gateway interface {
	Status(ctx context.Context) (Status, error)
	Request(ctx context.Context, caps []Capability) (bool, error)
	RegisterCategory(ctx context.Context, c Category) error
	OpenSettings(ctx context.Context) error
}
