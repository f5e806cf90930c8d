package notify

import (
	"context"
	"errors"
	"time"

	"alertd/internal/alert"
)

var (
	// ErrPolicyFiltered reports the normal, silent outcome of a non-critical
	// alert failing a settings/permission/quiet-hours/rate gate.
	ErrPolicyFiltered = errors.New("filtered by user settings")

	ErrNilAlert = errors.New("nil alert")
)

// Payload is what gets handed to the OS notification gateway.
type Payload struct {
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Category string         `json:"category"`
	Sound    string         `json:"sound,omitempty"`
	Critical bool           `json:"critical"`
	AlertID  string         `json:"alertId"`
	Data     map[string]any `json:"data,omitempty"`
}

// Gateway abstracts the OS notification surface. Schedule returns the
// OS-assigned notification identifier.
type Gateway interface {
	Schedule(ctx context.Context, p Payload) (string, error)
	Cancel(ctx context.Context, id string) error
	CancelAll(ctx context.Context) error
	BadgeCount(ctx context.Context) (int, error)
	SetBadgeCount(ctx context.Context, n int) error
}

// HistoryItem is one delivered notification, kept for UI display. The list
// is bounded and separate from the rate-limit ledger.
type HistoryItem struct {
	NotificationID string         `json:"notificationId"`
	AlertID        string         `json:"alertId"`
	Priority       alert.Priority `json:"priority"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Category       string         `json:"category"`
	At             time.Time      `json:"at"`
}

// Event bus topics published by the service.
const (
	EventQueued   = "notify.queued"
	EventSent     = "notify.sent"
	EventFiltered = "notify.filtered"
	EventFailed   = "notify.failed"
)

// DeliveryEvent is the bus payload for the notify.* topics.
type DeliveryEvent struct {
	AlertID  string    `json:"alert_id"`
	Priority string    `json:"priority"`
	At       time.Time `json:"at"`
	Error    string    `json:"error,omitempty"`
}
