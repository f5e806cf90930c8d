package settings

import (
	"testing"

	"alertd/internal/alert"
)

func boolPtr(v bool) *bool    { return &v }
func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	if err := Default().Validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}
	if !Default().AllowNotifications {
		t.Fatal("defaults should allow notifications")
	}
}

func TestMergePartial(t *testing.T) {
	t.Parallel()
	cur := Default()
	next := Merge(cur, Patch{
		AllowLow:   boolPtr(false),
		MaxPerHour: intPtr(3),
		QuietHours: &QuietHoursPatch{Enabled: boolPtr(true), Start: strPtr("23:00")},
	})

	if next.AllowLow {
		t.Fatal("AllowLow should be false after merge")
	}
	if next.MaxPerHour != 3 {
		t.Fatalf("MaxPerHour = %d, want 3", next.MaxPerHour)
	}
	if !next.QuietHours.Enabled || next.QuietHours.Start != "23:00" {
		t.Fatalf("quiet hours not merged: %+v", next.QuietHours)
	}
	// Untouched fields keep current values.
	if next.QuietHours.End != cur.QuietHours.End {
		t.Fatalf("QuietHours.End changed: %q", next.QuietHours.End)
	}
	if !next.AllowHigh || !next.AllowNotifications {
		t.Fatal("unrelated flags changed")
	}
	// Merge is pure; cur must be untouched.
	if !cur.AllowLow || cur.MaxPerHour != Default().MaxPerHour {
		t.Fatal("Merge mutated its input")
	}
}

func TestMergeEmptyPatchIsIdentity(t *testing.T) {
	t.Parallel()
	cur := Default()
	if got := Merge(cur, Patch{}); got != cur {
		t.Fatalf("empty patch changed settings: %+v", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Settings) {}},
		{name: "negative cap", mutate: func(s *Settings) { s.MaxPerHour = -1 }, wantErr: true},
		{name: "bad start", mutate: func(s *Settings) { s.QuietHours.Start = "25:00" }, wantErr: true},
		{name: "bad end", mutate: func(s *Settings) { s.QuietHours.End = "7pm" }, wantErr: true},
		{name: "zero cap ok", mutate: func(s *Settings) { s.MaxPerHour = 0 }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := Default()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAllowsPriority(t *testing.T) {
	t.Parallel()
	s := Default()
	s.AllowMedium = false
	if s.AllowsPriority(alert.PriorityMedium) {
		t.Fatal("medium should be disallowed")
	}
	if !s.AllowsPriority(alert.PriorityHigh) {
		t.Fatal("high should be allowed")
	}
	s.AllowCritical = false
	if s.AllowsPriority(alert.PriorityCritical) {
		t.Fatal("AllowsPriority reflects the flag; the bypass lives in the caller")
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		minutes int
		wantErr bool
	}{
		{raw: "00:00", minutes: 0},
		{raw: "23:59", minutes: 23*60 + 59},
		{raw: "07:30", minutes: 7*60 + 30},
		{raw: "24:00", wantErr: true},
		{raw: "12:60", wantErr: true},
		{raw: "noon", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseClock(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if err == nil && got != tt.minutes {
			t.Fatalf("ParseClock(%q) = %d, want %d", tt.raw, got, tt.minutes)
		}
	}
}
