package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"omnisearch/internal/domain"
	"omnisearch/internal/infra/logger"
	"omnisearch/internal/usecase/collect"
	"omnisearch/internal/usecase/suspend"
)

// Invoker performs the transport step of one backend run. The orchestration
// core does not care whether that is HTTP or something else.
type Invoker interface {
	Invoke(ctx context.Context, spec *domain.RequestSpec) (*domain.RawResponse, error)
}

// Executor wraps one adapter invocation with a timeout, outbound rate
// limiting, failure classification, and suspension bookkeeping. It is the
// unit of concurrency: the orchestrator launches one Run per eligible
// backend. A Run never returns an error to its caller; failures become run
// state and an Outcome.
type Executor struct {
	tracker    *suspend.Tracker
	classifier *Classifier
	invoker    Invoker
	logger     *slog.Logger

	// Limiters are process-wide per backend, shared across requests.
	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewExecutor creates an Executor.
func NewExecutor(tracker *suspend.Tracker, invoker Invoker, logger *slog.Logger) *Executor {
	return &Executor{
		tracker:    tracker,
		classifier: NewClassifier(),
		invoker:    invoker,
		logger:     logger,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Run executes one backend for one query and reports parsed results into
// the collector. The run is bounded by min(backend timeout, remaining
// parent deadline); a cancelled run reports a timeout and adds nothing.
func (e *Executor) Run(ctx context.Context, a domain.Adapter, q domain.Query, loc string, col *collect.Collector) Outcome {
	d := a.Descriptor()
	log := logger.WithBackend(e.logger, d.ID)
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	if lim := e.limiter(d); lim != nil {
		if err := lim.Wait(runCtx); err != nil {
			// Wait refuses up front when the deadline cannot fit the next
			// token; that is budget exhaustion, not a parse problem.
			return e.fail(runCtx, d.ID,
				fmt.Errorf("%w: rate limiter: %v", domain.ErrTimeout, err),
				log, start)
		}
	}

	spec, err := a.BuildRequest(q, loc)
	if err != nil {
		return e.fail(runCtx, d.ID, err, log, start)
	}

	var raw *domain.RawResponse
	if spec.URL == "" {
		// Offline backend: the request carries its own payload.
		raw = &domain.RawResponse{Status: 200, Body: spec.Body}
	} else {
		raw, err = e.invoker.Invoke(runCtx, spec)
		if err != nil {
			return e.fail(runCtx, d.ID, err, log, start)
		}
	}

	items, err := a.ParseResponse(raw)
	if err != nil {
		return e.fail(runCtx, d.ID, err, log, start)
	}

	// A run that exhausted its budget must not contribute items, even when
	// the adapter managed to parse a late response.
	if runCtx.Err() != nil {
		e.tracker.ReportFailure(d.ID)
		return Outcome{
			Backend: d.ID, Status: StatusTimeout,
			Detail: string(FailureTimeout), Elapsed: time.Since(start),
		}
	}

	e.tracker.ReportSuccess(d.ID)
	if err := col.Add(d.ID, items); err != nil {
		// Collector refusal means orchestrator wiring is broken, not the
		// backend; surface it loudly but keep the run accounted as ok.
		log.Error("collector rejected results", "error", err)
	}

	log.Debug("backend run complete",
		"results", len(items),
		"elapsed", time.Since(start),
	)
	return Outcome{
		Backend: d.ID, Status: StatusOK,
		Results: len(items), Elapsed: time.Since(start),
	}
}

// fail records one classified failure with the tracker and builds the
// outcome. Failures never propagate: one bad backend cannot cancel a query.
func (e *Executor) fail(ctx context.Context, id string, err error, log *slog.Logger, start time.Time) Outcome {
	kind := e.classifier.Classify(ctx, err)
	e.tracker.ReportFailure(id)

	status := StatusError
	if kind == FailureTimeout {
		status = StatusTimeout
	}

	// Parse failures get their own log shape: they usually mean the
	// provider changed its response format, not that it is down.
	if kind == FailureParse {
		log.Warn("backend response unparseable", "error", err)
	} else {
		log.Debug("backend run failed", "kind", kind, "error", err)
	}

	return Outcome{
		Backend: id, Status: status,
		Detail: string(kind), Elapsed: time.Since(start),
	}
}

// limiter returns the process-wide limiter for the backend, creating it on
// first use. Backends without a configured rate are unlimited.
func (e *Executor) limiter(d domain.Descriptor) *rate.Limiter {
	if d.RatePerSec <= 0 {
		return nil
	}

	e.limMu.Lock()
	defer e.limMu.Unlock()
	lim, ok := e.limiters[d.ID]
	if !ok {
		burst := d.RateBurst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(d.RatePerSec), burst)
		e.limiters[d.ID] = lim
	}
	return lim
}
