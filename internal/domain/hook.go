package domain

// PreOutcome is the result of one pre-dispatch hook. At most one of Query
// and Answer is set: Query rewrites the request, Answer short-circuits the
// whole dispatch with an immediate result. Both nil means pass-through.
type PreOutcome struct {
	Query  *Query
	Answer Result
}

// PreHook rewrites or short-circuits a query before backend selection.
// Hooks receive a value copy and must return changes through the outcome;
// they never mutate shared state. A hook error skips the hook.
type PreHook interface {
	Name() string
	Priority() int // lower runs first
	Before(q Query) (PreOutcome, error)
}

// PostHook folds over the merged result set after collection. It receives
// and returns a snapshot; the previous snapshot is kept when it errors.
type PostHook interface {
	Name() string
	Priority() int
	After(page ResultPage) (ResultPage, error)
}
