package permission

import "fmt"

// Platform selects one of the two capability profiles at startup. All
// platform-conditional behavior hangs off the resolved Profile; nothing
// downstream compares platform strings.
type Platform string

const (
	PlatformApple   Platform = "apple"
	PlatformAndroid Platform = "android"
)

// Profile describes what a platform family can be asked for.
//
// CriticalEntitlement marks platforms that gate critical alerts behind a
// separate grant; where it is false, critical alerts ride on the base
// permission and CriticalAlertsAllowed is always true.
type Profile struct {
	Platform            Platform
	Capabilities        []Capability
	CriticalEntitlement bool
}

func ProfileFor(p Platform) (Profile, error) {
	switch p {
	case PlatformApple:
		return Profile{
			Platform:            PlatformApple,
			Capabilities:        []Capability{CapabilityAlert, CapabilityBadge, CapabilitySound, CapabilityCriticalAlert},
			CriticalEntitlement: true,
		}, nil
	case PlatformAndroid:
		return Profile{
			Platform:            PlatformAndroid,
			Capabilities:        []Capability{CapabilityAlert, CapabilitySound},
			CriticalEntitlement: false,
		}, nil
	default:
		return Profile{}, fmt.Errorf("unknown platform %q", p)
	}
}

func (p Profile) educationText() string {
	if p.CriticalEntitlement {
		return "Notifications are disabled. Enable them in Settings > Notifications, " +
			"and allow Critical Alerts so urgent issues can break through Focus and silent mode."
	}
	return "Notifications are disabled. Open the app's notification settings and " +
		"turn notifications back on to receive operational alerts."
}
