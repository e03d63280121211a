package dispatch

import (
	"sort"
	"time"
)

// BackendStatus is the per-backend outcome of one dispatch.
type BackendStatus string

const (
	StatusOK        BackendStatus = "ok"
	StatusTimeout   BackendStatus = "timeout"
	StatusError     BackendStatus = "error"
	StatusSuspended BackendStatus = "suspended"
	StatusSkipped   BackendStatus = "skipped" // excluded, disabled, or no usable locale
)

// Outcome is one backend's contribution summary.
type Outcome struct {
	Backend string        `json:"backend"`
	Status  BackendStatus `json:"status"`
	Detail  string        `json:"detail,omitempty"` // failure kind or skip reason
	Results int           `json:"results"`
	Elapsed time.Duration `json:"elapsed"`
}

// PartialFailureInfo summarizes which backends answered, failed, or were
// never asked. It is diagnostic output: a dispatch with failures in here is
// still a successful dispatch.
type PartialFailureInfo struct {
	Outcomes []Outcome `json:"outcomes"`
}

// record appends one outcome. Callers serialize through the orchestrator's
// status mutex.
func (p *PartialFailureInfo) record(o Outcome) {
	p.Outcomes = append(p.Outcomes, o)
}

// sorted orders outcomes by backend id so the summary is stable.
func (p *PartialFailureInfo) sorted() {
	sort.Slice(p.Outcomes, func(i, j int) bool {
		return p.Outcomes[i].Backend < p.Outcomes[j].Backend
	})
}

// Succeeded returns the ids of backends that answered.
func (p *PartialFailureInfo) Succeeded() []string {
	return p.withStatus(StatusOK)
}

// Failed returns the ids of backends that timed out or errored, sorted by
// backend id.
func (p *PartialFailureInfo) Failed() []string {
	var ids []string
	for _, o := range p.Outcomes {
		if o.Status == StatusTimeout || o.Status == StatusError {
			ids = append(ids, o.Backend)
		}
	}
	sort.Strings(ids)
	return ids
}

// AllFailed reports whether every asked backend failed. Skipped and
// suspended backends do not count as asked.
func (p *PartialFailureInfo) AllFailed() bool {
	asked, failed := 0, 0
	for _, o := range p.Outcomes {
		switch o.Status {
		case StatusOK:
			asked++
		case StatusTimeout, StatusError:
			asked++
			failed++
		}
	}
	return asked > 0 && asked == failed
}

func (p *PartialFailureInfo) withStatus(s BackendStatus) []string {
	var ids []string
	for _, o := range p.Outcomes {
		if o.Status == s {
			ids = append(ids, o.Backend)
		}
	}
	return ids
}
