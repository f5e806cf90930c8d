package notify

import "alertd/internal/alert"

// maxBodyLen caps the notification body; longer messages are truncated with
// a trailing ellipsis marker.
const maxBodyLen = 140

const ellipsis = "..."

func buildPayload(a *alert.Alert, customSounds bool) Payload {
	p := Payload{
		Title:    a.Title,
		Body:     truncateBody(a.Message),
		Category: a.Priority.String() + "_ALERT",
		Critical: a.Priority == alert.PriorityCritical,
		AlertID:  a.ID,
		Data:     a.Data,
	}
	p.Sound = soundFor(a.Priority, customSounds)
	return p
}

func soundFor(p alert.Priority, custom bool) string {
	if !custom {
		return "default"
	}
	switch p {
	case alert.PriorityCritical:
		return "critical.wav"
	case alert.PriorityHigh:
		return "high.wav"
	default:
		return "default"
	}
}

func truncateBody(s string) string {
	if len(s) <= maxBodyLen {
		return s
	}
	return s[:maxBodyLen-len(ellipsis)] + ellipsis
}
