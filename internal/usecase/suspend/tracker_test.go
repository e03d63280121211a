package suspend

import (
	"log/slog"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTracker(clock *fakeClock) *Tracker {
	return New(Params{Threshold: 3, Base: time.Minute, Max: 8 * time.Minute}, clock, slog.Default())
}

func TestSuccessResetsCounter(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock)

	// fail, fail, success, fail, fail: never reaches the threshold.
	tr.ReportFailure("ddg")
	tr.ReportFailure("ddg")
	tr.ReportSuccess("ddg")
	tr.ReportFailure("ddg")
	tr.ReportFailure("ddg")

	if tr.Suspended("ddg") {
		t.Error("backend should remain active below the threshold")
	}
	if got := tr.Check("ddg"); got != Admit {
		t.Errorf("Check = %v, want admit", got)
	}
}

func TestThresholdSuspends(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock)

	for i := 0; i < 3; i++ {
		tr.ReportFailure("ddg")
	}

	if !tr.Suspended("ddg") {
		t.Fatal("three consecutive failures should suspend")
	}
	st := tr.Stats("ddg")
	if !st.SuspendedUntil.After(clock.Now()) {
		t.Error("suspended_until must be in the future")
	}
	if got := tr.Check("ddg"); got != Deny {
		t.Errorf("Check during suspension = %v, want deny", got)
	}
}

func TestProbeAfterExpiry(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock)

	for i := 0; i < 3; i++ {
		tr.ReportFailure("ddg")
	}
	clock.Advance(time.Minute + time.Second)

	if got := tr.Check("ddg"); got != Probe {
		t.Fatalf("first Check after expiry = %v, want probe", got)
	}
	// Only one probe slot until the probe reports back.
	if got := tr.Check("ddg"); got != Deny {
		t.Errorf("second Check during probe = %v, want deny", got)
	}

	tr.ReportSuccess("ddg")
	if got := tr.Check("ddg"); got != Admit {
		t.Errorf("Check after successful probe = %v, want admit", got)
	}
	if st := tr.Stats("ddg"); st.Consecutive != 0 || st.Offenses != 0 {
		t.Errorf("success should clear history, got %+v", st)
	}
}

func TestFailedProbeEscalates(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock)

	durations := make([]time.Duration, 0, 4)
	for cycle := 0; cycle < 4; cycle++ {
		if cycle == 0 {
			for i := 0; i < 3; i++ {
				tr.ReportFailure("ddg")
			}
		} else {
			st := tr.Stats("ddg")
			clock.Advance(st.SuspendedUntil.Sub(clock.Now()) + time.Second)
			if got := tr.Check("ddg"); got != Probe {
				t.Fatalf("cycle %d: Check = %v, want probe", cycle, got)
			}
			tr.ReportFailure("ddg")
		}
		st := tr.Stats("ddg")
		if !st.Suspended {
			t.Fatalf("cycle %d: expected suspension", cycle)
		}
		durations = append(durations, st.SuspendedUntil.Sub(clock.Now()))
	}

	// 1m, 2m, 4m, 8m: non-decreasing and capped.
	for i := 1; i < len(durations); i++ {
		if durations[i] < durations[i-1] {
			t.Errorf("backoff shrank: %v then %v", durations[i-1], durations[i])
		}
	}
	if durations[3] != 8*time.Minute {
		t.Errorf("fourth window = %v, want cap 8m", durations[3])
	}
}

func TestBackoffCap(t *testing.T) {
	tr := newTracker(newFakeClock())
	if got := tr.backoff(1); got != time.Minute {
		t.Errorf("backoff(1) = %v", got)
	}
	if got := tr.backoff(3); got != 4*time.Minute {
		t.Errorf("backoff(3) = %v", got)
	}
	if got := tr.backoff(20); got != 8*time.Minute {
		t.Errorf("backoff(20) = %v, want cap", got)
	}
}

func TestNoSuspensionObservedAfterReset(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock)

	for i := 0; i < 3; i++ {
		tr.ReportFailure("ddg")
	}
	// A straggling failure from a run admitted before suspension must not
	// extend the window.
	before := tr.Stats("ddg").SuspendedUntil
	tr.ReportFailure("ddg")
	if after := tr.Stats("ddg").SuspendedUntil; !after.Equal(before) {
		t.Errorf("late failure extended the window: %v -> %v", before, after)
	}
}

func TestIndependentBackends(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock)

	for i := 0; i < 3; i++ {
		tr.ReportFailure("flaky")
	}
	if tr.Suspended("healthy") {
		t.Error("unrelated backend must not be affected")
	}
	if got := tr.Check("healthy"); got != Admit {
		t.Errorf("Check(healthy) = %v, want admit", got)
	}
}

func TestConcurrentReports(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				tr.ReportFailure("a")
			} else {
				tr.ReportSuccess("a")
			}
			tr.Check("b")
			tr.ReportFailure("b")
		}(i)
	}
	wg.Wait()

	if st := tr.Stats("b"); st.TotalErrors != 50 {
		t.Errorf("TotalErrors = %d, want 50", st.TotalErrors)
	}
}
