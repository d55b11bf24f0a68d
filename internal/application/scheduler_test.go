package application

import (
	"context"
	"testing"
	"time"
)

func newSchedulerUnderTest(t *testing.T, interval time.Duration) (*Scheduler, *fakeAuthority) {
	t.Helper()
	authority := &fakeAuthority{}
	authority.setRoster(t, loc(t, 1, "Cafeteria", 30, 10))
	svc := NewMonitorService(authority, NewStore())
	return NewScheduler(svc, interval), authority
}

func waitForSimulateCalls(t *testing.T, authority *fakeAuthority, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, calls := authority.counts(); calls >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	_, calls := authority.counts()
	t.Fatalf("simulate calls = %d, want at least %d", calls, want)
}

func TestEnableAutoRunsImmediateCycle(t *testing.T) {
	sched, authority := newSchedulerUnderTest(t, time.Hour)
	defer sched.DisableAuto()

	sched.EnableAuto()
	waitForSimulateCalls(t, authority, 1)

	deadline := time.Now().Add(2 * time.Second)
	for {
		rosterCalls, simulateCalls := authority.counts()
		if simulateCalls != 1 {
			t.Fatalf("simulate calls = %d, want exactly 1 before the first tick", simulateCalls)
		}
		if rosterCalls == 1 {
			break
		}
		if !time.Now().Before(deadline) {
			t.Fatalf("roster never fetched after the immediate simulate")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if sched.State() != SchedulerAutoRunning {
		t.Fatalf("state = %s, want auto", sched.State())
	}
}

func TestEnableAutoTwiceStartsOneLoop(t *testing.T) {
	sched, authority := newSchedulerUnderTest(t, time.Hour)
	defer sched.DisableAuto()

	sched.EnableAuto()
	sched.EnableAuto()
	waitForSimulateCalls(t, authority, 1)
	time.Sleep(50 * time.Millisecond)

	if _, calls := authority.counts(); calls != 1 {
		t.Fatalf("simulate calls = %d, want 1 from a single loop", calls)
	}
}

func TestAutoCyclesOnInterval(t *testing.T) {
	sched, authority := newSchedulerUnderTest(t, 30*time.Millisecond)
	defer sched.DisableAuto()

	sched.EnableAuto()
	waitForSimulateCalls(t, authority, 3)
}

func TestDisableAutoStopsCycles(t *testing.T) {
	sched, authority := newSchedulerUnderTest(t, 20*time.Millisecond)

	sched.EnableAuto()
	waitForSimulateCalls(t, authority, 2)
	sched.DisableAuto()

	if sched.AutoEnabled() {
		t.Fatalf("auto still enabled after disable")
	}
	_, after := authority.counts()
	time.Sleep(100 * time.Millisecond)
	if _, calls := authority.counts(); calls != after {
		t.Fatalf("cycles continued after disable: %d -> %d", after, calls)
	}
	if sched.State() != SchedulerIdle {
		t.Fatalf("state = %s, want idle", sched.State())
	}
}

func TestForceRefreshPollsWithoutSimulateWhenIdle(t *testing.T) {
	sched, authority := newSchedulerUnderTest(t, time.Hour)

	if err := sched.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("force refresh: %v", err)
	}
	rosterCalls, simulateCalls := authority.counts()
	if rosterCalls != 1 || simulateCalls != 0 {
		t.Fatalf("calls = %d roster / %d simulate, want 1/0", rosterCalls, simulateCalls)
	}
}

func TestForceRefreshSimulatesWhileAutoActive(t *testing.T) {
	sched, authority := newSchedulerUnderTest(t, time.Hour)
	defer sched.DisableAuto()

	sched.EnableAuto()
	waitForSimulateCalls(t, authority, 1)

	// The immediate cycle may still be draining; a coalesced force is a
	// no-op, so keep forcing until one lands.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := sched.ForceRefresh(context.Background()); err != nil {
			t.Fatalf("force refresh: %v", err)
		}
		if _, calls := authority.counts(); calls >= 2 {
			return
		}
		if !time.Now().Before(deadline) {
			t.Fatalf("forced cycle never simulated")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
