package alert

import (
	"encoding/json"
	"testing"
)

func TestPriorityOrdering(t *testing.T) {
	t.Parallel()
	if !(PriorityLow < PriorityMedium && PriorityMedium < PriorityHigh && PriorityHigh < PriorityCritical) {
		t.Fatal("priority ordering broken")
	}
}

func TestParsePriority(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    Priority
		wantErr bool
	}{
		{raw: "LOW", want: PriorityLow},
		{raw: "medium", want: PriorityMedium},
		{raw: " High ", want: PriorityHigh},
		{raw: "CRITICAL", want: PriorityCritical},
		{raw: "urgent", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParsePriority(%q) error = %v", tt.raw, err)
		}
		if err == nil && got != tt.want {
			t.Fatalf("ParsePriority(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestPriorityJSONRoundTrip(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(PriorityCritical)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"CRITICAL"` {
		t.Fatalf("marshal = %s", b)
	}

	var p Priority
	if err := json.Unmarshal([]byte(`"MEDIUM"`), &p); err != nil {
		t.Fatal(err)
	}
	if p != PriorityMedium {
		t.Fatalf("unmarshal = %v", p)
	}
	if err := json.Unmarshal([]byte(`"WHENEVER"`), &p); err == nil {
		t.Fatal("expected error for unknown priority")
	}
}
