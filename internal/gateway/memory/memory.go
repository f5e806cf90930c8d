// Package memory provides in-process gateway drivers. They emulate the OS
// surfaces closely enough for development and tests; nothing here talks to a
// real notification center.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"alertd/internal/notify"
	"alertd/internal/permission"
)

// Notifier is an in-memory notify.Gateway. Scheduled payloads stay
// retrievable until cancelled.
type Notifier struct {
	mu        sync.Mutex
	scheduled map[string]notify.Payload
	badge     int
}

func NewNotifier() *Notifier {
	return &Notifier{scheduled: map[string]notify.Payload{}}
}

func (n *Notifier) Schedule(ctx context.Context, p notify.Payload) (string, error) {
	_ = ctx
	id := uuid.NewString()
	n.mu.Lock()
	n.scheduled[id] = p
	n.mu.Unlock()
	return id, nil
}

func (n *Notifier) Cancel(ctx context.Context, id string) error {
	_ = ctx
	n.mu.Lock()
	delete(n.scheduled, id)
	n.mu.Unlock()
	return nil
}

func (n *Notifier) CancelAll(ctx context.Context) error {
	_ = ctx
	n.mu.Lock()
	n.scheduled = map[string]notify.Payload{}
	n.mu.Unlock()
	return nil
}

func (n *Notifier) BadgeCount(ctx context.Context) (int, error) {
	_ = ctx
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.badge, nil
}

func (n *Notifier) SetBadgeCount(ctx context.Context, v int) error {
	_ = ctx
	n.mu.Lock()
	n.badge = v
	n.mu.Unlock()
	return nil
}

// Scheduled returns a snapshot of currently scheduled payloads by id.
func (n *Notifier) Scheduled() map[string]notify.Payload {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]notify.Payload, len(n.scheduled))
	for k, v := range n.scheduled {
		out[k] = v
	}
	return out
}

// Permissions is an in-memory permission.Gateway. The zero state is
// undetermined-askable; Request grants unless DenyRequests is set.
type Permissions struct {
	mu sync.Mutex

	granted      bool
	canAskAgain  bool
	critical     *bool
	denyRequests bool

	categories []permission.Category
}

func NewPermissions() *Permissions {
	return &Permissions{canAskAgain: true}
}

// DenyRequests makes future Request calls report a user decline.
func (p *Permissions) DenyRequests(deny bool) {
	p.mu.Lock()
	p.denyRequests = deny
	p.mu.Unlock()
}

// SetCriticalAllowed sets the critical-alert entitlement flag.
func (p *Permissions) SetCriticalAllowed(allowed bool) {
	p.mu.Lock()
	p.critical = &allowed
	p.mu.Unlock()
}

func (p *Permissions) Status(ctx context.Context) (permission.Status, error) {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	return permission.Status{Granted: p.granted, CanAskAgain: p.canAskAgain, CriticalAlerts: p.critical}, nil
}

func (p *Permissions) Request(ctx context.Context, caps []permission.Capability) (bool, error) {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.denyRequests {
		p.granted = false
		p.canAskAgain = false
		return false, nil
	}
	p.granted = true
	// Grant the critical entitlement iff it was requested.
	for _, c := range caps {
		if c == permission.CapabilityCriticalAlert {
			t := true
			p.critical = &t
		}
	}
	return true, nil
}

func (p *Permissions) RegisterCategory(ctx context.Context, c permission.Category) error {
	_ = ctx
	p.mu.Lock()
	p.categories = append(p.categories, c)
	p.mu.Unlock()
	return nil
}

func (p *Permissions) OpenSettings(ctx context.Context) error {
	_ = ctx
	return nil
}

// Categories returns the categories registered so far.
func (p *Permissions) Categories() []permission.Category {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]permission.Category(nil), p.categories...)
}
