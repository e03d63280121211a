// Package collect aggregates results arriving concurrently from backend
// executors and merges them into one deterministic ranked set. Collection
// appends to per-backend buckets under per-bucket locks; all cross-backend
// work happens in Finalize, which depends only on bucket contents, never on
// executor completion order.
package collect

import (
	"sort"
	"sync"

	"omnisearch/internal/domain"
)

// bucket holds one backend's raw results during collection.
type bucket struct {
	mu      sync.Mutex
	weight  float64
	results []domain.Result
}

// Collector is the per-request aggregation structure. Register every
// backend before launching executors; Add is safe for concurrent use.
type Collector struct {
	mu      sync.RWMutex // guards the bucket map, not bucket contents
	buckets map[string]*bucket
	order   []string // registration order, part of the deterministic iteration

	// rankSmoothing is the k in weight/(position+k).
	rankSmoothing float64
}

// New creates a Collector. rankSmoothing flattens the positional score
// bonus; values at or below zero fall back to the default.
func New(rankSmoothing float64) *Collector {
	if rankSmoothing <= 0 {
		rankSmoothing = 6
	}
	return &Collector{
		buckets:       make(map[string]*bucket),
		rankSmoothing: rankSmoothing,
	}
}

// Register creates the bucket for a backend. Duplicate registration is an
// error; it indicates the orchestrator double-launched an executor.
func (c *Collector) Register(backendID string, weight float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.buckets[backendID]; exists {
		return domain.NewDomainError("Collector.Register", domain.ErrDuplicate, backendID)
	}
	if weight <= 0 {
		weight = 1
	}
	c.buckets[backendID] = &bucket{weight: weight}
	c.order = append(c.order, backendID)
	return nil
}

// Add appends results to the backend's bucket, stamping backend identity
// and per-backend rank positions onto each item. Only the bucket's own lock
// is taken, so backends never contend with each other.
func (c *Collector) Add(backendID string, results []domain.Result) error {
	c.mu.RLock()
	b, ok := c.buckets[backendID]
	c.mu.RUnlock()
	if !ok {
		return domain.NewDomainError("Collector.Add", domain.ErrCollector, "unregistered backend "+backendID)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range results {
		if r == nil {
			continue
		}
		m := r.Common()
		m.Backend = backendID
		if m.Position == 0 {
			m.Position = len(b.results) + 1
		}
		b.results = append(b.results, r)
	}
	return nil
}

// Finalize merges, scores, and orders everything collected so far. The
// output depends only on bucket contents: buckets are walked in
// registration order sorted lexically, so two runs with the same
// per-backend lists produce identical pages regardless of arrival timing.
func (c *Collector) Finalize(query string) *domain.ResultPage {
	c.mu.RLock()
	ids := append([]string(nil), c.order...)
	c.mu.RUnlock()
	sort.Strings(ids)

	groups := make(map[string]*domain.MergedResult)
	var firstSeen []string // fingerprints in deterministic first-seen order

	for _, id := range ids {
		c.mu.RLock()
		b := c.buckets[id]
		c.mu.RUnlock()

		b.mu.Lock()
		results := append([]domain.Result(nil), b.results...)
		b.mu.Unlock()

		for _, r := range results {
			fp := Fingerprint(r)
			g, ok := groups[fp]
			if !ok {
				g = &domain.MergedResult{
					Result:    r,
					Positions: make(map[string]int),
				}
				groups[fp] = g
				firstSeen = append(firstSeen, fp)
			} else if preferable(r, g.Result) {
				g.Result = r
			}

			m := r.Common()
			if prev, seen := g.Positions[m.Backend]; !seen || m.Position < prev {
				g.Positions[m.Backend] = m.Position
			}
		}
	}

	// Score each merged item over its contributors.
	weights := make(map[string]float64, len(ids))
	for _, id := range ids {
		c.mu.RLock()
		weights[id] = c.buckets[id].weight
		c.mu.RUnlock()
	}

	page := &domain.ResultPage{Query: query}
	var ranked []domain.MergedResult
	for _, fp := range firstSeen {
		g := groups[fp]

		backends := make([]string, 0, len(g.Positions))
		for id := range g.Positions {
			backends = append(backends, id)
		}
		sort.Strings(backends)
		g.Backends = backends

		score := 0.0
		for _, id := range backends {
			score += weights[id] / (float64(g.Positions[id]) + c.rankSmoothing)
		}
		g.Score = score

		if domain.SideChannel(g.Result.Kind()) {
			appendSideChannel(page, g.Result)
			continue
		}
		ranked = append(ranked, *g)
	}

	// Stable sort keeps first-seen order on equal scores; ties never depend
	// on goroutine timing because first-seen order is itself deterministic.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	page.Results = ranked
	return page
}

// preferable reports whether candidate carries higher-quality fields than
// current and should become the group's representative.
func preferable(candidate, current domain.Result) bool {
	cw, cok := candidate.(*domain.WebResult)
	pw, pok := current.(*domain.WebResult)
	if cok && pok {
		// Prefer a populated snippet, then the richer metadata.
		if (cw.Snippet != "") != (pw.Snippet != "") {
			return cw.Snippet != ""
		}
		if len(cw.Snippet) != len(pw.Snippet) {
			return len(cw.Snippet) > len(pw.Snippet)
		}
		if (cw.PublishedAt != nil) != (pw.PublishedAt != nil) {
			return cw.PublishedAt != nil
		}
		return cw.Thumbnail != "" && pw.Thumbnail == ""
	}

	// Across kinds keep the longer title as a rough quality proxy.
	return len(candidate.Common().Title) > len(current.Common().Title)
}

func appendSideChannel(page *domain.ResultPage, r domain.Result) {
	switch v := r.(type) {
	case *domain.Answer:
		page.Answers = append(page.Answers, v)
	case *domain.Structured:
		page.Structured = append(page.Structured, v)
	case *domain.Suggestion:
		page.Suggestions = append(page.Suggestions, v.Title)
	case *domain.Correction:
		page.Corrections = append(page.Corrections, v.Title)
	}
}
