package domain

import (
	"context"
	"net/http"
	"time"
)

// BackendKind distinguishes how a backend produces results.
type BackendKind string

const (
	KindOnline      BackendKind = "online"      // network request per query
	KindOffline     BackendKind = "offline"     // local computation, no network
	KindSpecialized BackendKind = "specialized" // online, narrow answer domain
)

// Traits is a backend's declared capability set. Read-only during a request.
type Traits struct {
	Locales        []string // supported locale tags; empty means locale-agnostic
	DefaultLocale  string   // fallback when the requested locale has no match
	LocaleRequired bool     // ineligible for a request it cannot localize
	TimeRange      bool     // honors Query.TimeRange
	SafeSearch     bool     // honors Query.SafeSearch
	Paging         bool     // honors Query.PageNo
	NeedsToken     bool     // uses the continuity cache across requests
}

// Descriptor is the static definition of one backend. Owned by the registry.
type Descriptor struct {
	ID         string
	Shortcut   string // bang code, e.g. "w" for "!w"
	Category   Category
	Kind       BackendKind
	Traits     Traits
	Weight     float64       // ranking influence of this backend's positions
	Timeout    time.Duration // per-backend budget, independent of the global deadline
	Enabled    bool
	RatePerSec float64 // outbound request rate toward the backend; 0 disables limiting
	RateBurst  int
}

// RequestSpec describes one backend invocation. For online backends it is an
// HTTP request; offline backends leave URL empty and carry their input in
// Body, which the executor echoes back into RawResponse unchanged.
type RequestSpec struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// RawResponse is the uninterpreted outcome of one backend invocation.
type RawResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Adapter integrates one backend. BuildRequest and ParseResponse must be
// pure with respect to orchestration state; ParseResponse in particular runs
// on the executor goroutine and must not touch shared mutable state.
type Adapter interface {
	Descriptor() Descriptor
	BuildRequest(q Query, locale string) (*RequestSpec, error)
	ParseResponse(raw *RawResponse) ([]Result, error)
}

// Initializer is implemented by adapters that need one-time startup work.
// An Init error excludes the backend for the process lifetime.
type Initializer interface {
	Init(ctx context.Context) error
}

// TokenStore persists small opaque continuity tokens across requests and
// process restarts. A miss is advisory: the adapter re-acquires the token.
type TokenStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// TokenUser is implemented by adapters that keep a continuity token. The
// registry injects the shared store at registration time.
type TokenUser interface {
	SetTokenStore(store TokenStore)
}
