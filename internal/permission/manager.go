package permission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"alertd/internal/alert"
	"alertd/pkg/logx"
)

// State is the cached permission status. "denied" is terminal unless the OS
// reports it can ask again, in which case the next status check maps back to
// "undetermined" and a further request may still succeed.
type State string

const (
	StateUndetermined State = "undetermined"
	StateGranted      State = "granted"
	StateDenied       State = "denied"
)

// ErrPermissionDenied reports that the user declined the OS prompt.
var ErrPermissionDenied = errors.New("notifications denied by user")

// IsDenied reports whether err is the user-declined outcome, as opposed to a
// gateway fault.
func IsDenied(err error) bool { return errors.Is(err, ErrPermissionDenied) }

// Categories registered as a side effect of a granted request.
var categories = []Category{
	{Name: "CRITICAL_ALERT", Actions: []Action{{ID: "acknowledge", Title: "Acknowledge"}, {ID: "view-details", Title: "View Details"}}},
	{Name: "HIGH_ALERT", Actions: []Action{{ID: "acknowledge", Title: "Acknowledge"}, {ID: "dismiss", Title: "Dismiss"}}},
	{Name: "MEDIUM_ALERT", Actions: []Action{{ID: "dismiss", Title: "Dismiss"}}},
}

// Manager owns the permission state machine. Construct one per process and
// inject it; there is no package-level instance.
//
// It is safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	log     logx.Logger
	gw      Gateway
	profile Profile

	current        State
	educationShown bool

	// onDenial, when set, is invoked once per denial episode (best-effort
	// operator nudge). Its failure is reported, never re-panicked.
	onDenial func(ctx context.Context, education string) error
}

func New(gw Gateway, profile Profile, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{
		log:     log,
		gw:      gw,
		profile: profile,
		current: StateUndetermined,
	}
}

// SetDenialHook installs the side effect HandleDenial runs.
func (m *Manager) SetDenialHook(fn func(ctx context.Context, education string) error) {
	m.mu.Lock()
	m.onDenial = fn
	m.mu.Unlock()
}

// CheckStatus queries the gateway and refreshes the cached state.
//
// Mapping: granted -> granted; not granted but askable -> undetermined;
// not granted and not askable -> denied. A gateway fault reads as
// undetermined (fail open to "ask later", never fatal).
func (m *Manager) CheckStatus(ctx context.Context) State {
	st, err := m.gw.Status(ctx)
	if err != nil {
		m.log.Warn("permission status check failed", logx.Err(err))
		m.setCurrent(StateUndetermined)
		return StateUndetermined
	}
	next := mapStatus(st)
	m.setCurrent(next)
	return next
}

func mapStatus(st Status) State {
	switch {
	case st.Granted:
		return StateGranted
	case st.CanAskAgain:
		return StateUndetermined
	default:
		return StateDenied
	}
}

// Request negotiates permission with the OS. Already-granted short-circuits
// without prompting. On a fresh grant the notification categories are
// registered as a side effect; category registration failure is logged, not
// fatal, since the grant itself stands.
func (m *Manager) Request(ctx context.Context) (State, error) {
	if m.CheckStatus(ctx) == StateGranted {
		return StateGranted, nil
	}

	granted, err := m.gw.Request(ctx, m.profile.Capabilities)
	if err != nil {
		return m.Current(), fmt.Errorf("failed to request permissions: %w", err)
	}
	if !granted {
		m.setCurrent(StateDenied)
		return StateDenied, ErrPermissionDenied
	}

	m.setCurrent(StateGranted)
	for _, c := range categories {
		if err := m.gw.RegisterCategory(ctx, c); err != nil {
			m.log.Warn("category registration failed", logx.String("category", c.Name), logx.Err(err))
		}
	}
	m.log.Info("notification permission granted", logx.String("platform", string(m.profile.Platform)))
	return StateGranted, nil
}

// CriticalAlertsAllowed reports whether critical alerts may be delivered.
// Platforms without a separate entitlement always allow them; otherwise the
// detailed status flag decides, with absent or errored reading as false.
func (m *Manager) CriticalAlertsAllowed(ctx context.Context) bool {
	if !m.profile.CriticalEntitlement {
		return true
	}
	st, err := m.gw.Status(ctx)
	if err != nil {
		return false
	}
	return st.CriticalAlerts != nil && *st.CriticalAlerts
}

// ValidateForPriority reports whether a notification of priority p may be
// delivered given the current permission state. Critical priority
// additionally requires the critical-alert entitlement where one exists.
func (m *Manager) ValidateForPriority(ctx context.Context, p alert.Priority) bool {
	if m.CheckStatus(ctx) != StateGranted {
		return false
	}
	if p != alert.PriorityCritical {
		return true
	}
	return m.CriticalAlertsAllowed(ctx)
}

// HandleDenial runs the informational denial side effect (at most once until
// ResetEducation). It never fails the caller unless the side effect itself
// does, in which case the fault is wrapped and reported.
func (m *Manager) HandleDenial(ctx context.Context) error {
	m.mu.Lock()
	if m.educationShown {
		m.mu.Unlock()
		return nil
	}
	m.educationShown = true
	hook := m.onDenial
	text := m.profile.educationText()
	m.mu.Unlock()

	m.log.Info("notification permission denied", logx.String("platform", string(m.profile.Platform)))
	if hook != nil {
		if err := hook(ctx, text); err != nil {
			return fmt.Errorf("failed to handle permission denial: %w", err)
		}
	}
	return nil
}

// CanAskAgain reports whether the OS would still show a prompt.
func (m *Manager) CanAskAgain(ctx context.Context) bool {
	st, err := m.gw.Status(ctx)
	if err != nil {
		return false
	}
	return !st.Granted && st.CanAskAgain
}

func (m *Manager) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) setCurrent(s State) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
}

func (m *Manager) EducationShown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.educationShown
}

func (m *Manager) ResetEducation() {
	m.mu.Lock()
	m.educationShown = false
	m.mu.Unlock()
}

// EducationText returns the platform-specific guidance shown to users who
// declined the prompt.
func (m *Manager) EducationText() string { return m.profile.educationText() }

// OpenAppSettings asks the OS to open the app's notification settings page.
func (m *Manager) OpenAppSettings(ctx context.Context) error {
	if err := m.gw.OpenSettings(ctx); err != nil {
		return fmt.Errorf("failed to open app settings: %w", err)
	}
	return nil
}
