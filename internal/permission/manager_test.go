package permission

import (
	"context"
	"errors"
	"testing"

	"alertd/internal/alert"
	"alertd/pkg/logx"
)

// fakeGateway scripts the OS permission surface.
type fakeGateway struct {
	status    Status
	statusErr error

	requestGrant bool
	requestErr   error
	requestCalls int

	categories []Category
	catErr     error

	openErr error
}

func (f *fakeGateway) Status(ctx context.Context) (Status, error) {
	return f.status, f.statusErr
}

func (f *fakeGateway) Request(ctx context.Context, caps []Capability) (bool, error) {
	f.requestCalls++
	if f.requestErr != nil {
		return false, f.requestErr
	}
	if f.requestGrant {
		f.status = Status{Granted: true}
	}
	return f.requestGrant, nil
}

func (f *fakeGateway) RegisterCategory(ctx context.Context, c Category) error {
	if f.catErr != nil {
		return f.catErr
	}
	f.categories = append(f.categories, c)
	return nil
}

func (f *fakeGateway) OpenSettings(ctx context.Context) error { return f.openErr }

func appleManager(gw Gateway) *Manager {
	p, _ := ProfileFor(PlatformApple)
	return New(gw, p, logx.Nop())
}

func androidManager(gw Gateway) *Manager {
	p, _ := ProfileFor(PlatformAndroid)
	return New(gw, p, logx.Nop())
}

func TestCheckStatusMapping(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status Status
		err    error
		want   State
	}{
		{name: "granted", status: Status{Granted: true}, want: StateGranted},
		{name: "askable maps to undetermined", status: Status{Granted: false, CanAskAgain: true}, want: StateUndetermined},
		{name: "denied terminal", status: Status{Granted: false, CanAskAgain: false}, want: StateDenied},
		{name: "gateway fault fails open", err: errors.New("boom"), want: StateUndetermined},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := appleManager(&fakeGateway{status: tt.status, statusErr: tt.err})
			if got := m.CheckStatus(context.Background()); got != tt.want {
				t.Fatalf("CheckStatus() = %v, want %v", got, tt.want)
			}
			if m.Current() != tt.want {
				t.Fatalf("Current() = %v, want %v", m.Current(), tt.want)
			}
		})
	}
}

func TestRequestShortCircuitsWhenGranted(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{status: Status{Granted: true}}
	m := appleManager(gw)

	st, err := m.Request(context.Background())
	if err != nil || st != StateGranted {
		t.Fatalf("Request() = %v, %v", st, err)
	}
	if gw.requestCalls != 0 {
		t.Fatalf("expected no OS prompt, got %d request calls", gw.requestCalls)
	}
}

func TestRequestGrantRegistersCategories(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{status: Status{CanAskAgain: true}, requestGrant: true}
	m := appleManager(gw)

	st, err := m.Request(context.Background())
	if err != nil || st != StateGranted {
		t.Fatalf("Request() = %v, %v", st, err)
	}
	if len(gw.categories) != 3 {
		t.Fatalf("registered %d categories, want 3", len(gw.categories))
	}
	names := map[string]int{}
	for _, c := range gw.categories {
		names[c.Name] = len(c.Actions)
	}
	if names["CRITICAL_ALERT"] != 2 || names["HIGH_ALERT"] != 2 || names["MEDIUM_ALERT"] != 1 {
		t.Fatalf("unexpected categories: %v", names)
	}
}

func TestRequestDenied(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{status: Status{CanAskAgain: true}, requestGrant: false}
	m := appleManager(gw)

	st, err := m.Request(context.Background())
	if !IsDenied(err) {
		t.Fatalf("expected denial, got %v", err)
	}
	if st != StateDenied || m.Current() != StateDenied {
		t.Fatalf("state = %v, want denied", st)
	}
}

func TestRequestGatewayFault(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{status: Status{CanAskAgain: true}, requestErr: errors.New("ipc broke")}
	m := appleManager(gw)

	_, err := m.Request(context.Background())
	if err == nil || IsDenied(err) {
		t.Fatalf("expected wrapped gateway fault, got %v", err)
	}
}

func TestCriticalAlertsAllowed(t *testing.T) {
	t.Parallel()
	yes, no := true, false
	tests := []struct {
		name  string
		apple bool
		flag  *bool
		err   error
		want  bool
	}{
		{name: "apple flag set", apple: true, flag: &yes, want: true},
		{name: "apple flag false", apple: true, flag: &no, want: false},
		{name: "apple flag absent", apple: true, flag: nil, want: false},
		{name: "apple gateway error", apple: true, flag: &yes, err: errors.New("boom"), want: false},
		{name: "android always true", apple: false, flag: nil, want: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gw := &fakeGateway{status: Status{Granted: true, CriticalAlerts: tt.flag}, statusErr: tt.err}
			var m *Manager
			if tt.apple {
				m = appleManager(gw)
			} else {
				m = androidManager(gw)
			}
			if got := m.CriticalAlertsAllowed(context.Background()); got != tt.want {
				t.Fatalf("CriticalAlertsAllowed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateForPriority(t *testing.T) {
	t.Parallel()

	// Base granted, entitlement missing: non-critical passes, critical fails.
	gw := &fakeGateway{status: Status{Granted: true}}
	m := appleManager(gw)
	ctx := context.Background()
	if !m.ValidateForPriority(ctx, alert.PriorityHigh) {
		t.Fatal("high should validate with base grant")
	}
	if m.ValidateForPriority(ctx, alert.PriorityCritical) {
		t.Fatal("critical must not validate without the entitlement")
	}

	yes := true
	gw.status.CriticalAlerts = &yes
	if !m.ValidateForPriority(ctx, alert.PriorityCritical) {
		t.Fatal("critical should validate with base grant + entitlement")
	}

	// No base grant: nothing validates.
	gw2 := &fakeGateway{status: Status{CanAskAgain: true}}
	m2 := appleManager(gw2)
	if m2.ValidateForPriority(ctx, alert.PriorityLow) {
		t.Fatal("nothing validates without base permission")
	}
}

func TestHandleDenialRunsOnce(t *testing.T) {
	t.Parallel()
	m := appleManager(&fakeGateway{})
	calls := 0
	m.SetDenialHook(func(ctx context.Context, education string) error {
		calls++
		if education == "" {
			t.Error("education text empty")
		}
		return nil
	})

	ctx := context.Background()
	if err := m.HandleDenial(ctx); err != nil {
		t.Fatalf("HandleDenial: %v", err)
	}
	if err := m.HandleDenial(ctx); err != nil {
		t.Fatalf("HandleDenial (second): %v", err)
	}
	if calls != 1 {
		t.Fatalf("hook ran %d times, want 1", calls)
	}

	m.ResetEducation()
	if err := m.HandleDenial(ctx); err != nil {
		t.Fatalf("HandleDenial (after reset): %v", err)
	}
	if calls != 2 {
		t.Fatalf("hook ran %d times after reset, want 2", calls)
	}
}

func TestHandleDenialHookFailureIsReported(t *testing.T) {
	t.Parallel()
	m := appleManager(&fakeGateway{})
	m.SetDenialHook(func(ctx context.Context, education string) error {
		return errors.New("toast service down")
	})
	if err := m.HandleDenial(context.Background()); err == nil {
		t.Fatal("expected hook failure to surface")
	}
}

func TestCanAskAgain(t *testing.T) {
	t.Parallel()
	if !appleManager(&fakeGateway{status: Status{CanAskAgain: true}}).CanAskAgain(context.Background()) {
		t.Fatal("want true while askable")
	}
	if appleManager(&fakeGateway{status: Status{Granted: true}}).CanAskAgain(context.Background()) {
		t.Fatal("granted permission has nothing to ask")
	}
	if appleManager(&fakeGateway{statusErr: errors.New("boom")}).CanAskAgain(context.Background()) {
		t.Fatal("gateway fault should read as not askable")
	}
}
