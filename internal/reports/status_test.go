package reports

import "testing"

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusPending, false},
		{StatusInProgress, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}
	for _, tt := range tests {
		if !tt.status.Valid() {
			t.Fatalf("%s should be valid", tt.status)
		}
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Fatalf("%s.Terminal() = %v", tt.status, got)
		}
		if got := tt.status.CanStartRun(); got != tt.terminal {
			t.Fatalf("%s.CanStartRun() = %v", tt.status, got)
		}
	}
	if len(AllStatuses) != len(tests) {
		t.Fatalf("AllStatuses has %d entries", len(AllStatuses))
	}
}

func TestStatusUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown status")
		}
	}()
	Status("Archived").Terminal()
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus("InProgress"); err != nil || s != StatusInProgress {
		t.Fatalf("ParseStatus = %v, %v", s, err)
	}
	if _, err := ParseStatus("in_progress"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusInProgress}:   true,
		{StatusPending, StatusFailed}:       true,
		{StatusInProgress, StatusCompleted}: true,
		{StatusInProgress, StatusFailed}:    true,
		{StatusCompleted, StatusPending}:    true,
		{StatusFailed, StatusPending}:       true,
	}
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			if got := CanTransition(from, to); got != allowed[[2]Status{from, to}] {
				t.Fatalf("CanTransition(%s, %s) = %v", from, to, got)
			}
		}
	}
}
