// Package suspend tracks per-backend failure history and temporarily
// excludes chronically failing backends from dispatch. The state machine is
// a circuit breaker with a growing open window: consecutive failures trip a
// backend into suspension, the window doubles per repeated offense up to a
// cap, and exactly one probe request is admitted when the window expires.
package suspend

import (
	"log/slog"
	"sync"
	"time"

	"omnisearch/internal/domain"
)

// Admission is the tracker's verdict for one backend at dispatch time.
type Admission int

const (
	// Admit means the backend is active and may run normally.
	Admit Admission = iota
	// Probe means the suspension window just expired; this caller carries
	// the single readmission attempt.
	Probe
	// Deny means the backend is suspended (or a probe is already in flight).
	Deny
)

func (a Admission) String() string {
	switch a {
	case Admit:
		return "admit"
	case Probe:
		return "probe"
	default:
		return "deny"
	}
}

// Params tunes the suspension circuit.
type Params struct {
	Threshold int           // consecutive failures before suspension
	Base      time.Duration // first suspension window
	Max       time.Duration // window growth cap
}

// runState is the per-backend, process-lifetime counter set. It is shared
// across concurrent requests for the same backend and mutated only under
// its own mutex, never a tracker-wide lock.
type runState struct {
	mu             sync.Mutex
	consecutive    int       // failures since the last success
	offenses       int       // completed suspension cycles without a success
	suspendedUntil time.Time // zero while active
	probing        bool      // a readmission probe is outstanding
	totalErrors    int
}

// Tracker holds run state for every backend seen by the process.
type Tracker struct {
	params Params
	clock  domain.Clock
	logger *slog.Logger

	mu       sync.RWMutex // guards the map only, never held during state transitions
	backends map[string]*runState
}

// New creates a Tracker. Zero-valued params fall back to defaults
// (threshold 3, base 1m, max 1h).
func New(params Params, clock domain.Clock, logger *slog.Logger) *Tracker {
	if params.Threshold <= 0 {
		params.Threshold = 3
	}
	if params.Base <= 0 {
		params.Base = time.Minute
	}
	if params.Max < params.Base {
		params.Max = time.Hour
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Tracker{
		params:   params,
		clock:    clock,
		logger:   logger,
		backends: make(map[string]*runState),
	}
}

func (t *Tracker) state(id string) *runState {
	t.mu.RLock()
	rs, ok := t.backends[id]
	t.mu.RUnlock()
	if ok {
		return rs
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if rs, ok = t.backends[id]; !ok {
		rs = &runState{}
		t.backends[id] = rs
	}
	return rs
}

// Check returns the tracker's verdict for the backend right now. A Probe
// verdict reserves the single readmission slot: concurrent callers observe
// Deny until the probe reports back through ReportSuccess or ReportFailure.
func (t *Tracker) Check(id string) Admission {
	rs := t.state(id)
	now := t.clock.Now()

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.suspendedUntil.IsZero() {
		return Admit
	}
	if now.Before(rs.suspendedUntil) {
		return Deny
	}
	if rs.probing {
		return Deny
	}
	rs.probing = true
	return Probe
}

// Suspended reports whether the backend is currently inside a suspension
// window, without consuming the probe slot.
func (t *Tracker) Suspended(id string) bool {
	rs := t.state(id)
	now := t.clock.Now()

	rs.mu.Lock()
	defer rs.mu.Unlock()
	return !rs.suspendedUntil.IsZero() && now.Before(rs.suspendedUntil)
}

// ReportSuccess resets the backend's failure history. One success clears the
// consecutive count, the offense ladder, and any pending probe.
func (t *Tracker) ReportSuccess(id string) {
	rs := t.state(id)

	rs.mu.Lock()
	wasSuspended := !rs.suspendedUntil.IsZero()
	rs.consecutive = 0
	rs.offenses = 0
	rs.suspendedUntil = time.Time{}
	rs.probing = false
	rs.mu.Unlock()

	if wasSuspended && t.logger != nil {
		t.logger.Info("backend reinstated", "backend", id)
	}
}

// ReportFailure records one failed run. A failed probe re-suspends at the
// next backoff tier immediately; otherwise suspension begins once the
// consecutive-failure count reaches the threshold.
func (t *Tracker) ReportFailure(id string) {
	rs := t.state(id)
	now := t.clock.Now()

	rs.mu.Lock()
	rs.consecutive++
	rs.totalErrors++

	suspend := false
	switch {
	case rs.probing:
		rs.probing = false
		suspend = true
	case rs.suspendedUntil.IsZero() && rs.consecutive >= t.params.Threshold:
		suspend = true
	}

	var until time.Time
	var offenses int
	if suspend {
		rs.offenses++
		rs.suspendedUntil = now.Add(t.backoff(rs.offenses))
		until = rs.suspendedUntil
		offenses = rs.offenses
	}
	rs.mu.Unlock()

	if suspend && t.logger != nil {
		t.logger.Warn("backend suspended",
			"backend", id,
			"offense", offenses,
			"until", until,
		)
	}
}

// backoff returns the suspension window for the nth offense: base doubled
// per prior offense, capped at max.
func (t *Tracker) backoff(offense int) time.Duration {
	d := t.params.Base
	for i := 1; i < offense; i++ {
		d *= 2
		if d >= t.params.Max {
			return t.params.Max
		}
	}
	if d > t.params.Max {
		return t.params.Max
	}
	return d
}

// Snapshot is a read-only view of one backend's run state.
type Snapshot struct {
	Consecutive    int
	Offenses       int
	TotalErrors    int
	SuspendedUntil time.Time
	Suspended      bool
}

// Stats returns a snapshot of the backend's counters.
func (t *Tracker) Stats(id string) Snapshot {
	rs := t.state(id)
	now := t.clock.Now()

	rs.mu.Lock()
	defer rs.mu.Unlock()
	return Snapshot{
		Consecutive:    rs.consecutive,
		Offenses:       rs.offenses,
		TotalErrors:    rs.totalErrors,
		SuspendedUntil: rs.suspendedUntil,
		Suspended:      !rs.suspendedUntil.IsZero() && now.Before(rs.suspendedUntil),
	}
}
