package domain

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct {
		from, to Status
	}{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusPending, StatusRejected},
		{StatusPending, StatusRescheduled},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusRescheduled},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("CanTransition(%s, %s) = false, want true", tc.from, tc.to)
		}
	}

	denied := []struct {
		from, to Status
	}{
		{StatusPending, StatusCompleted},
		{StatusConfirmed, StatusRejected},
		{StatusConfirmed, StatusPending},
		{StatusCompleted, StatusConfirmed},
		{StatusCancelled, StatusPending},
		{StatusRejected, StatusConfirmed},
		{StatusRescheduled, StatusConfirmed},
		{StatusRescheduled, StatusPending},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("CanTransition(%s, %s) = true, want false", tc.from, tc.to)
		}
	}
}

func TestTerminalStatusesHaveNoOutgoingEdges(t *testing.T) {
	all := []Status{
		StatusPending, StatusConfirmed, StatusCompleted,
		StatusCancelled, StatusRejected, StatusRescheduled,
	}
	for _, from := range all {
		if !from.Terminal() {
			continue
		}
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("terminal status %s has outgoing edge to %s", from, to)
			}
		}
	}
}

func TestActiveAndTerminalArePartitioned(t *testing.T) {
	all := []Status{
		StatusPending, StatusConfirmed, StatusCompleted,
		StatusCancelled, StatusRejected, StatusRescheduled,
	}
	for _, s := range all {
		if s.Active() == s.Terminal() {
			t.Errorf("status %s: Active() = %v, Terminal() = %v; want exactly one", s, s.Active(), s.Terminal())
		}
	}
}
