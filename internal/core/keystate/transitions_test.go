package keystate

import (
	"testing"
	"time"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		name       string
		apply      func(State) TransitionResult
		from       State
		wantState  State
		wantReset  bool
	}{
		{name: "absent to pending on mutation", apply: OnMutation, from: StateAbsent, wantState: StatePending, wantReset: true},
		{name: "consistent to pending on mutation", apply: OnMutation, from: StateConsistent, wantState: StatePending, wantReset: true},
		{name: "failed to pending on mutation", apply: OnMutation, from: StateFailed, wantState: StatePending, wantReset: true},
		{name: "pending to consistent on sync", apply: OnSynced, from: StatePending, wantState: StateConsistent, wantReset: true},
		{name: "pending to absent on remove", apply: OnRemoved, from: StatePending, wantState: StateAbsent, wantReset: true},
		{name: "consistent to absent on remove", apply: OnRemoved, from: StateConsistent, wantState: StateAbsent, wantReset: true},
		{name: "pending to failed on failure", apply: OnFailure, from: StatePending, wantState: StateFailed, wantReset: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.apply(tt.from)
			if result.NewState != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, result.NewState)
			}
			if result.ResetAttempts != tt.wantReset {
				t.Errorf("expected ResetAttempts=%v, got %v", tt.wantReset, result.ResetAttempts)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	max := 2 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 100 * time.Millisecond},
		{attempt: 2, want: 200 * time.Millisecond},
		{attempt: 3, want: 400 * time.Millisecond},
		{attempt: 4, want: 800 * time.Millisecond},
		{attempt: 6, want: 2 * time.Second},  // capped
		{attempt: 20, want: 2 * time.Second}, // stays capped, no overflow
		{attempt: 0, want: 100 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := Backoff(base, tt.attempt, max); got != tt.want {
			t.Errorf("Backoff(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
