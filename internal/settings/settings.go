package settings

import (
	"fmt"
	"strconv"
	"strings"

	"alertd/internal/alert"
)

// QuietHours is a clock-time window in the user's local time.
// Start > End means the window wraps past midnight.
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"` // "HH:MM"
	End     string `json:"end"`   // "HH:MM"
}

// Settings is the user-controlled notification policy. One instance,
// persisted as a blob; mutated only through Merge + a successful persist.
type Settings struct {
	AllowNotifications bool       `json:"allowNotifications"`
	AllowCritical      bool       `json:"allowCritical"`
	AllowHigh          bool       `json:"allowHigh"`
	AllowMedium        bool       `json:"allowMedium"`
	AllowLow           bool       `json:"allowLow"`
	QuietHours         QuietHours `json:"quietHours"`
	MaxPerHour         int        `json:"maxPerHour"`
	CustomSounds       bool       `json:"customSounds"`
}

// Default returns the settings used when nothing has been persisted yet.
func Default() Settings {
	return Settings{
		AllowNotifications: true,
		AllowCritical:      true,
		AllowHigh:          true,
		AllowMedium:        true,
		AllowLow:           true,
		QuietHours:         QuietHours{Enabled: false, Start: "22:00", End: "07:00"},
		MaxPerHour:         10,
		CustomSounds:       false,
	}
}

// AllowsPriority reports whether the per-priority flag admits p.
// The CRITICAL bypass is the caller's concern, not this record's.
func (s Settings) AllowsPriority(p alert.Priority) bool {
	switch p {
	case alert.PriorityCritical:
		return s.AllowCritical
	case alert.PriorityHigh:
		return s.AllowHigh
	case alert.PriorityMedium:
		return s.AllowMedium
	default:
		return s.AllowLow
	}
}

func (s Settings) Validate() error {
	if s.MaxPerHour < 0 {
		return fmt.Errorf("maxPerHour must be >= 0, got %d", s.MaxPerHour)
	}
	if _, err := ParseClock(s.QuietHours.Start); err != nil {
		return fmt.Errorf("quietHours.start: %w", err)
	}
	if _, err := ParseClock(s.QuietHours.End); err != nil {
		return fmt.Errorf("quietHours.end: %w", err)
	}
	return nil
}

// QuietHoursPatch mirrors QuietHours with omitted-vs-set semantics.
type QuietHoursPatch struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Start   *string `json:"start,omitempty"`
	End     *string `json:"end,omitempty"`
}

// Patch is a partial settings update. Nil fields keep the current value.
type Patch struct {
	AllowNotifications *bool            `json:"allowNotifications,omitempty"`
	AllowCritical      *bool            `json:"allowCritical,omitempty"`
	AllowHigh          *bool            `json:"allowHigh,omitempty"`
	AllowMedium        *bool            `json:"allowMedium,omitempty"`
	AllowLow           *bool            `json:"allowLow,omitempty"`
	QuietHours         *QuietHoursPatch `json:"quietHours,omitempty"`
	MaxPerHour         *int             `json:"maxPerHour,omitempty"`
	CustomSounds       *bool            `json:"customSounds,omitempty"`
}

// Merge applies p on top of cur and returns the result. Pure function; the
// caller decides whether the result is committed (after persisting it).
func Merge(cur Settings, p Patch) Settings {
	next := cur
	if p.AllowNotifications != nil {
		next.AllowNotifications = *p.AllowNotifications
	}
	if p.AllowCritical != nil {
		next.AllowCritical = *p.AllowCritical
	}
	if p.AllowHigh != nil {
		next.AllowHigh = *p.AllowHigh
	}
	if p.AllowMedium != nil {
		next.AllowMedium = *p.AllowMedium
	}
	if p.AllowLow != nil {
		next.AllowLow = *p.AllowLow
	}
	if p.QuietHours != nil {
		if p.QuietHours.Enabled != nil {
			next.QuietHours.Enabled = *p.QuietHours.Enabled
		}
		if p.QuietHours.Start != nil {
			next.QuietHours.Start = *p.QuietHours.Start
		}
		if p.QuietHours.End != nil {
			next.QuietHours.End = *p.QuietHours.End
		}
	}
	if p.MaxPerHour != nil {
		next.MaxPerHour = *p.MaxPerHour
	}
	if p.CustomSounds != nil {
		next.CustomSounds = *p.CustomSounds
	}
	return next
}

// ParseClock parses an "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q (want HH:MM)", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}
