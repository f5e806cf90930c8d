package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"alertd/internal/alert"
	"alertd/internal/eventbus"
	"alertd/internal/permission"
	"alertd/internal/policy"
	"alertd/internal/settings"
	"alertd/internal/storage"
	"alertd/pkg/logx"
)

const (
	settingsKey = "notification.settings"

	historyLimit  = 100
	historyMaxAge = 24 * time.Hour

	// Per-alert cap on a drain-loop gateway call, so a hung gateway cannot
	// wedge the queue forever.
	drainCallTimeout = 10 * time.Second
)

// Service owns the alert queue, the send ledger, the bounded notification
// history and the badge pass-through. It decides per alert whether a
// notification is delivered, deferred to policy, or dropped.
//
// It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log   logx.Logger
	gw    Gateway
	perm  *permission.Manager
	store storage.Store // nil when persistence is disabled
	bus   eventbus.Bus

	settings    settings.Settings
	initialized bool

	// FIFO queue of caller-owned alerts plus the at-most-one-drain flag.
	queue    []*alert.Alert
	draining bool
	drainWG  sync.WaitGroup

	// ledger holds send timestamps for the sliding rate window, oldest
	// first, pruned lazily on read. history is the separate UI-facing list.
	ledger  []time.Time
	history []HistoryItem

	cron *cron.Cron
}

func New(gw Gateway, perm *permission.Manager, store storage.Store, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:      log.With(logx.String("comp", "notify")),
		gw:       gw,
		perm:     perm,
		store:    store,
		bus:      bus,
		settings: settings.Default(),
	}
}

// Initialize loads persisted settings and negotiates permission. A declined
// permission prompt degrades (notifications will be filtered) but does not
// fail initialization; only a faulted gateway request call does.
func (s *Service) Initialize(ctx context.Context) error {
	s.loadSettings(ctx)

	_, err := s.perm.Request(ctx)
	switch {
	case err == nil:
	case permission.IsDenied(err):
		if herr := s.perm.HandleDenial(ctx); herr != nil {
			s.log.Warn("denial handling failed", logx.Err(herr))
		}
		s.log.Info("starting without notification permission")
	default:
		return fmt.Errorf("failed to initialize notification service: %w", err)
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	return nil
}

func (s *Service) loadSettings(ctx context.Context) {
	st := settings.Default()
	if s.store != nil {
		blob, ok, err := s.store.Get(ctx, settingsKey)
		switch {
		case err != nil:
			s.log.Warn("settings load failed, using defaults", logx.Err(err))
		case ok:
			var loaded settings.Settings
			if uerr := json.Unmarshal(blob, &loaded); uerr != nil {
				s.log.Warn("settings blob unreadable, using defaults", logx.Err(uerr))
			} else if verr := loaded.Validate(); verr != nil {
				s.log.Warn("persisted settings invalid, using defaults", logx.Err(verr))
			} else {
				st = loaded
			}
		}
	}
	s.mu.Lock()
	s.settings = st
	s.mu.Unlock()
}

// Start launches the hourly maintenance job. Idempotent.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}
	s.cron = cron.New()
	_, _ = s.cron.AddFunc("@hourly", s.maintain)
	s.cron.Start()
}

// Stop halts maintenance and waits for an in-flight drain to finish,
// best-effort until ctx expires. Queued-but-unprocessed alerts are simply
// still queued on the next start.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		c.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.drainWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Schedule is the central per-alert decision. CRITICAL alerts bypass every
// policy gate and go straight to the gateway; everything else must pass
// permission, the per-priority allow flag, quiet hours and the hourly rate
// cap, or the call fails with ErrPolicyFiltered and the alert is untouched.
//
// Each call is a single point-in-time decision: a filtered or failed attempt
// is terminal for that call, re-attempting is the caller's choice.
func (s *Service) Schedule(ctx context.Context, a *alert.Alert) (string, error) {
	if a == nil {
		return "", ErrNilAlert
	}

	if a.Priority != alert.PriorityCritical {
		if reason := s.policyGate(ctx, a); reason != "" {
			s.log.Debug("notification filtered",
				logx.String("alert_id", a.ID),
				logx.String("priority", a.Priority.String()),
				logx.String("reason", reason))
			s.publish(EventFiltered, a, reason)
			return "", ErrPolicyFiltered
		}
	}

	s.mu.Lock()
	customSounds := s.settings.CustomSounds
	s.mu.Unlock()

	id, err := s.gw.Schedule(ctx, buildPayload(a, customSounds))
	if err != nil {
		s.publish(EventFailed, a, err.Error())
		return "", fmt.Errorf("failed to schedule notification: %w", err)
	}

	now := time.Now()
	a.NotificationSent = true
	a.NotificationScheduledAt = &now

	s.mu.Lock()
	s.ledger = append(s.ledger, now)
	s.history = append(s.history, HistoryItem{
		NotificationID: id,
		AlertID:        a.ID,
		Priority:       a.Priority,
		Title:          a.Title,
		Body:           truncateBody(a.Message),
		Category:       a.Priority.String() + "_ALERT",
		At:             now,
	})
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
	s.mu.Unlock()

	s.publish(EventSent, a, "")
	s.log.Info("notification scheduled",
		logx.String("alert_id", a.ID),
		logx.String("notification_id", id),
		logx.String("priority", a.Priority.String()))
	return id, nil
}

// policyGate returns "" when delivery may proceed, otherwise the gate that
// rejected it. Only called for non-critical priorities.
func (s *Service) policyGate(ctx context.Context, a *alert.Alert) string {
	now := time.Now()

	s.mu.Lock()
	st := s.settings
	s.ledger = policy.PruneWindow(s.ledger, now)
	sends := len(s.ledger)
	s.mu.Unlock()

	switch {
	case s.perm.CheckStatus(ctx) != permission.StateGranted:
		return "permission"
	case !st.AllowNotifications:
		return "notifications disabled"
	case !st.AllowsPriority(a.Priority):
		return "priority disabled"
	case policy.InQuietHours(now, st.QuietHours):
		return "quiet hours"
	case sends >= st.MaxPerHour:
		return "rate limit"
	default:
		return ""
	}
}

// Enqueue appends the alert to the FIFO queue and kicks the drain loop if
// one is not already running. It never fails; callers that need the
// per-alert outcome should call Schedule directly instead.
func (s *Service) Enqueue(a *alert.Alert) {
	if a == nil {
		return
	}

	s.mu.Lock()
	s.queue = append(s.queue, a)
	start := !s.draining
	if start {
		s.draining = true
		s.drainWG.Add(1)
	}
	s.mu.Unlock()

	s.publish(EventQueued, a, "")
	if start {
		go s.drain()
	}
}

// drain processes the queue strictly in FIFO order, one alert at a time,
// discarding each Schedule result. Alerts appended while it runs are picked
// up by this same loop; the draining flag guarantees at most one drain is
// ever active.
func (s *Service) drain() {
	defer s.drainWG.Done()
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		a := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), drainCallTimeout)
		if _, err := s.Schedule(ctx, a); err != nil {
			// Filtered and failed outcomes are terminal for this enqueue.
			s.log.Debug("queued alert not delivered", logx.String("alert_id", a.ID), logx.Err(err))
		}
		cancel()
	}
}

// QueueLen reports the number of alerts awaiting processing.
func (s *Service) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// UpdateSettings merges the patch, persists the result and only then applies
// it in memory. On persistence failure the current settings stand untouched.
func (s *Service) UpdateSettings(ctx context.Context, p settings.Patch) error {
	s.mu.Lock()
	cur := s.settings
	s.mu.Unlock()

	next := settings.Merge(cur, p)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	if s.store != nil {
		blob, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to update settings: %w", err)
		}
		if err := s.store.Put(ctx, settingsKey, blob); err != nil {
			return fmt.Errorf("failed to update settings: %w", err)
		}
	}

	s.mu.Lock()
	s.settings = next
	s.mu.Unlock()
	s.log.Info("notification settings updated")
	return nil
}

// Settings returns a snapshot of the current in-memory settings.
func (s *Service) Settings() settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Service) Cancel(ctx context.Context, id string) error {
	if err := s.gw.Cancel(ctx, id); err != nil {
		return fmt.Errorf("failed to cancel notification: %w", err)
	}
	return nil
}

func (s *Service) CancelAll(ctx context.Context) error {
	if err := s.gw.CancelAll(ctx); err != nil {
		return fmt.Errorf("failed to cancel notifications: %w", err)
	}
	return nil
}

func (s *Service) BadgeCount(ctx context.Context) (int, error) {
	n, err := s.gw.BadgeCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get badge count: %w", err)
	}
	return n, nil
}

func (s *Service) SetBadgeCount(ctx context.Context, n int) error {
	if err := s.gw.SetBadgeCount(ctx, n); err != nil {
		return fmt.Errorf("failed to set badge count: %w", err)
	}
	return nil
}

// History returns a copy of the bounded notification history.
func (s *Service) History() []HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}

// ClearHistory resets the history list. The rate-limit ledger keeps its
// sliding window; clearing history must not reopen the hourly cap.
func (s *Service) ClearHistory() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

func (s *Service) maintain() {
	now := time.Now()
	s.mu.Lock()
	s.ledger = policy.PruneWindow(s.ledger, now)
	cutoff := now.Add(-historyMaxAge)
	i := 0
	for i < len(s.history) && s.history[i].At.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.history = append(s.history[:0:0], s.history[i:]...)
	}
	s.mu.Unlock()
}

func (s *Service) publish(topic string, a *alert.Alert, errMsg string) {
	if s.bus == nil {
		return
	}
	now := time.Now()
	s.bus.Publish(eventbus.Event{Type: topic, Time: now, Data: DeliveryEvent{
		AlertID:  a.ID,
		Priority: a.Priority.String(),
		At:       now,
		Error:    errMsg,
	}})
}
