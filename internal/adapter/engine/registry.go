// Package engine holds the backend registry and the built-in search
// adapters. Each adapter translates between one provider's wire format and
// the shared result model; orchestration concerns live elsewhere.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"omnisearch/internal/domain"
)

// Registry holds registered backend adapters keyed by id. It is populated
// at startup and read-mostly afterwards.
type Registry struct {
	mu        sync.RWMutex
	adapters  map[string]domain.Adapter
	shortcuts map[string]string // bang code -> backend id
	logger    *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		adapters:  make(map[string]domain.Adapter),
		shortcuts: make(map[string]string),
		logger:    logger,
	}
}

// Register adds an adapter. Duplicate ids and duplicate shortcut codes are
// configuration mistakes and error out.
func (r *Registry) Register(a domain.Adapter) error {
	d := a.Descriptor()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[d.ID]; exists {
		return domain.NewDomainError("Registry.Register", domain.ErrDuplicate, d.ID)
	}
	if d.Shortcut != "" {
		if owner, exists := r.shortcuts[d.Shortcut]; exists {
			return domain.NewDomainError("Registry.Register", domain.ErrDuplicate,
				"shortcut "+d.Shortcut+" already owned by "+owner)
		}
		r.shortcuts[d.Shortcut] = d.ID
	}
	r.adapters[d.ID] = a
	return nil
}

// Get retrieves an adapter by id.
func (r *Registry) Get(id string) (domain.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[id]
	if !ok {
		return nil, domain.NewDomainError("Registry.Get", domain.ErrBackendNotFound, id)
	}
	return a, nil
}

// Adapters returns every registered adapter, sorted by id for
// deterministic iteration.
func (r *Registry) Adapters() []domain.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]domain.Adapter, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.adapters[id])
	}
	return out
}

// ByCategory returns the adapters serving one category, sorted by id.
func (r *Registry) ByCategory(c domain.Category) []domain.Adapter {
	var out []domain.Adapter
	for _, a := range r.Adapters() {
		if a.Descriptor().Category == c {
			out = append(out, a)
		}
	}
	return out
}

// Shortcut resolves a bang code to a backend id.
func (r *Registry) Shortcut(code string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.shortcuts[code]
	return id, ok
}

// Init runs one-time startup work for every adapter that needs it. An
// adapter whose Init fails is removed for the process lifetime; the rest
// of the registry stays usable. Token-using adapters get the shared store
// injected first so Init can read persisted state.
func (r *Registry) Init(ctx context.Context, store domain.TokenStore) {
	for _, a := range r.Adapters() {
		if tu, ok := a.(domain.TokenUser); ok && store != nil {
			tu.SetTokenStore(store)
		}
		init, ok := a.(domain.Initializer)
		if !ok {
			continue
		}
		id := a.Descriptor().ID
		if err := init.Init(ctx); err != nil {
			r.logger.Error("backend init failed, excluding for this process",
				"backend", id,
				"error", err,
			)
			r.remove(id)
		}
	}
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.adapters[id]
	if !ok {
		return
	}
	delete(r.adapters, id)
	if code := a.Descriptor().Shortcut; code != "" {
		delete(r.shortcuts, code)
	}
}
