package dispatch

import (
	"log/slog"
	"sort"

	"omnisearch/internal/domain"
)

// HookChain runs configured pre- and post-hooks in priority order. Hooks
// fold over immutable snapshots; a hook that errors is skipped and logged,
// never fatal to the request.
type HookChain struct {
	pre    []domain.PreHook
	post   []domain.PostHook
	logger *slog.Logger
}

// NewHookChain creates a chain, sorting hooks by ascending priority.
func NewHookChain(pre []domain.PreHook, post []domain.PostHook, logger *slog.Logger) *HookChain {
	pre = append([]domain.PreHook(nil), pre...)
	post = append([]domain.PostHook(nil), post...)
	sort.SliceStable(pre, func(i, j int) bool { return pre[i].Priority() < pre[j].Priority() })
	sort.SliceStable(post, func(i, j int) bool { return post[i].Priority() < post[j].Priority() })
	return &HookChain{pre: pre, post: post, logger: logger}
}

// RunPre folds the query through every pre-hook. A non-nil answer
// short-circuits the dispatch; remaining hooks do not run.
func (h *HookChain) RunPre(q domain.Query) (domain.Query, domain.Result) {
	for _, hook := range h.pre {
		out, err := hook.Before(q)
		if err != nil {
			h.logger.Warn("pre-hook failed, skipping",
				"hook", hook.Name(),
				"error", err,
			)
			continue
		}
		if out.Answer != nil {
			return q, out.Answer
		}
		if out.Query != nil {
			q = *out.Query
		}
	}
	return q, nil
}

// RunPost folds the merged page through every post-hook. An erroring hook
// leaves the page as the previous hook produced it.
func (h *HookChain) RunPost(page domain.ResultPage) domain.ResultPage {
	for _, hook := range h.post {
		next, err := hook.After(page)
		if err != nil {
			h.logger.Warn("post-hook failed, skipping",
				"hook", hook.Name(),
				"error", err,
			)
			continue
		}
		page = next
	}
	return page
}
