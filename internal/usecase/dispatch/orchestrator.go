// Package dispatch coordinates one search request: hook pre-processing,
// eligible-backend selection, concurrent fan-out with per-backend and
// global deadlines, result collection, and hook post-processing. Backend
// failures are absorbed into run state and diagnostics; Dispatch itself
// fails only on internal invariant violations.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"omnisearch/internal/domain"
	"omnisearch/internal/infra/logger"
	"omnisearch/internal/infra/tracer"
	"omnisearch/internal/usecase/collect"
	"omnisearch/internal/usecase/locale"
	"omnisearch/internal/usecase/suspend"
)

// Catalog provides the registered, startup-initialized backends.
type Catalog interface {
	// Adapters returns every registered adapter, sorted by id. Backends
	// whose Init failed at startup are not included.
	Adapters() []domain.Adapter
	// Shortcut resolves a bang code to a backend id.
	Shortcut(code string) (string, bool)
}

// Params tunes one Orchestrator.
type Params struct {
	Deadline      time.Duration // whole-request budget across all backends
	MaxConcurrent int           // simultaneous backend executors
	RankSmoothing float64       // collector scoring knob
	DefaultLocale string        // used when the request carries none

	// CategoryDisabled reports categories switched off in config. Nil
	// means every category is allowed.
	CategoryDisabled func(domain.Category) bool
}

// Orchestrator is the top-level search coordinator.
type Orchestrator struct {
	catalog  Catalog
	hooks    *HookChain
	tracker  *suspend.Tracker
	executor *Executor
	params   Params
	logger   *slog.Logger
}

// New creates an Orchestrator. Zero-valued params fall back to defaults.
func New(catalog Catalog, hooks *HookChain, tracker *suspend.Tracker, executor *Executor, params Params, log *slog.Logger) *Orchestrator {
	if params.Deadline <= 0 {
		params.Deadline = 6 * time.Second
	}
	if params.MaxConcurrent <= 0 {
		params.MaxConcurrent = 16
	}
	if params.DefaultLocale == "" {
		params.DefaultLocale = "en"
	}
	return &Orchestrator{
		catalog:  catalog,
		hooks:    hooks,
		tracker:  tracker,
		executor: executor,
		params:   params,
		logger:   log,
	}
}

// candidate is one backend admitted to the fan-out.
type candidate struct {
	adapter domain.Adapter
	locale  string
}

// Dispatch runs one query end to end. The returned page is never nil on a
// nil error; zero eligible backends yields an empty page, not an error.
func (o *Orchestrator) Dispatch(ctx context.Context, q domain.Query) (*domain.ResultPage, *PartialFailureInfo, error) {
	requestID := ulid.Make().String()
	log := logger.WithRequest(o.logger, requestID)
	start := time.Now()

	ctx, span := tracer.StartSpan(ctx, "dispatch")
	defer span.End()
	span.SetAttributes(
		tracer.StringAttr("request_id", requestID),
		tracer.StringAttr("query", q.Text),
	)

	info := &PartialFailureInfo{}

	q, answer := o.hooks.RunPre(q)
	if answer != nil {
		log.Info("dispatch short-circuited by hook", "query", q.Text)
		page := &domain.ResultPage{
			Query:   q.Text,
			Answers: []domain.Result{answer},
			Elapsed: time.Since(start),
		}
		tracer.SetOK(span)
		return page, info, nil
	}

	candidates := o.selectBackends(q, info)
	if len(candidates) == 0 {
		log.Info("no eligible backends", "query", q.Text, "categories", q.Categories)
		info.sorted()
		tracer.SetOK(span)
		return &domain.ResultPage{Query: q.Text, Elapsed: time.Since(start)}, info, nil
	}

	collector := collect.New(o.params.RankSmoothing)
	for _, c := range candidates {
		d := c.adapter.Descriptor()
		if err := collector.Register(d.ID, d.Weight); err != nil {
			tracer.RecordError(span, err)
			return nil, nil, domain.WrapOp("Dispatch", err)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, o.params.Deadline)
	defer cancel()

	var mu sync.Mutex
	sem := semaphore.NewWeighted(int64(o.params.MaxConcurrent))
	g, gctx := errgroup.WithContext(runCtx)

	for _, c := range candidates {
		c := c
		g.Go(func() error {
			d := c.adapter.Descriptor()
			if err := sem.Acquire(gctx, 1); err != nil {
				// Deadline elapsed before this backend got a slot.
				o.tracker.ReportFailure(d.ID)
				mu.Lock()
				info.record(Outcome{
					Backend: d.ID, Status: StatusTimeout,
					Detail: string(FailureTimeout),
				})
				mu.Unlock()
				return nil
			}
			defer sem.Release(1)

			outcome := o.executor.Run(gctx, c.adapter, q, c.locale, collector)
			mu.Lock()
			info.record(outcome)
			mu.Unlock()
			return nil
		})
	}
	// Executors never return errors; Wait is a completion barrier bounded
	// by the deadline on runCtx.
	_ = g.Wait()

	page := collector.Finalize(q.Text)
	page.Elapsed = time.Since(start)
	*page = o.hooks.RunPost(*page)
	info.sorted()

	log.Info("dispatch complete",
		"query", q.Text,
		"results", len(page.Results),
		"backends_ok", len(info.Succeeded()),
		"backends_failed", len(info.Failed()),
		"elapsed", page.Elapsed,
	)
	span.SetAttributes(
		tracer.IntAttr("results", len(page.Results)),
		tracer.IntAttr("backends", len(candidates)),
	)
	tracer.SetOK(span)
	return page, info, nil
}

// selectBackends computes the eligible set: category match, enabled,
// admitted by the request's explicit selection, not suspended (with one
// probe admitted per expired window), and locale-resolvable.
func (o *Orchestrator) selectBackends(q domain.Query, info *PartialFailureInfo) []candidate {
	requested := q.Locale
	if requested == "" {
		requested = o.params.DefaultLocale
	}

	var out []candidate
	for _, a := range o.catalog.Adapters() {
		d := a.Descriptor()
		if !q.HasCategory(d.Category) {
			continue
		}
		if !q.SelectsBackend(d.ID) {
			continue
		}
		if o.params.CategoryDisabled != nil && o.params.CategoryDisabled(d.Category) {
			info.record(Outcome{Backend: d.ID, Status: StatusSkipped, Detail: "category disabled"})
			continue
		}
		if !d.Enabled {
			info.record(Outcome{Backend: d.ID, Status: StatusSkipped, Detail: "disabled"})
			continue
		}
		// Locale eligibility is checked before admission: Check may consume
		// the backend's single readmission probe, and a candidate rejected
		// after that would strand the probe and leave the backend suspended.
		loc, ok := locale.Resolve(d.Traits, requested)
		if !ok {
			info.record(Outcome{Backend: d.ID, Status: StatusSkipped, Detail: "no usable locale"})
			continue
		}
		if o.tracker.Check(d.ID) == suspend.Deny {
			info.record(Outcome{Backend: d.ID, Status: StatusSuspended})
			continue
		}
		out = append(out, candidate{adapter: a, locale: loc})
	}
	return out
}
