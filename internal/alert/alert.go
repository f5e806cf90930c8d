package alert

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type classifies the operational area an alert belongs to.
type Type string

const (
	TypeInventory Type = "INVENTORY"
	TypeStaff     Type = "STAFF"
	TypeEquipment Type = "EQUIPMENT"
	TypeOrder     Type = "ORDER"
	TypeCustomer  Type = "CUSTOMER"
	TypeFinancial Type = "FINANCIAL"
)

// Priority is totally ordered: Low < Medium < High < Critical.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("PRIORITY(%d)", int(p))
	}
}

func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return PriorityLow, nil
	case "MEDIUM":
		return PriorityMedium, nil
	case "HIGH":
		return PriorityHigh, nil
	case "CRITICAL":
		return PriorityCritical, nil
	default:
		return PriorityLow, fmt.Errorf("unknown priority %q", s)
	}
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Alert is one actionable operational event, created and owned by the
// caller. The delivery queue only annotates it: NotificationSent is set true
// at most once, and only after a confirmed gateway schedule; it is never
// reset here.
type Alert struct {
	ID           string         `json:"id"`
	Type         Type           `json:"type"`
	Priority     Priority       `json:"priority"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Timestamp    time.Time      `json:"timestamp"`
	Acknowledged bool           `json:"acknowledged"`
	Resolved     bool           `json:"resolved"`
	Read         bool           `json:"read"`
	Data         map[string]any `json:"data,omitempty"`

	NotificationSent        bool       `json:"notificationSent"`
	NotificationScheduledAt *time.Time `json:"notificationScheduledAt,omitempty"`
	ShouldNotify            bool       `json:"shouldNotify"`
}
