package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnisearch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubAdapter is a minimal adapter with optional init and token hooks.
type stubAdapter struct {
	desc    domain.Descriptor
	initErr error
	inited  bool
	store   domain.TokenStore
}

func (a *stubAdapter) Descriptor() domain.Descriptor { return a.desc }

func (a *stubAdapter) BuildRequest(domain.Query, string) (*domain.RequestSpec, error) {
	return &domain.RequestSpec{}, nil
}

func (a *stubAdapter) ParseResponse(*domain.RawResponse) ([]domain.Result, error) {
	return nil, nil
}

func (a *stubAdapter) Init(context.Context) error {
	a.inited = true
	return a.initErr
}

func (a *stubAdapter) SetTokenStore(store domain.TokenStore) { a.store = store }

type mapTokenStore map[string][]byte

func (m mapTokenStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapTokenStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m[key] = value
	return nil
}

func stub(id, shortcut string) *stubAdapter {
	return &stubAdapter{desc: domain.Descriptor{ID: id, Shortcut: shortcut, Category: domain.CategoryGeneral}}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry(testLogger())
	require.NoError(t, r.Register(stub("alpha", "a")))

	got, err := r.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Descriptor().ID)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, domain.ErrBackendNotFound)
}

func TestRegistryDuplicateID(t *testing.T) {
	r := NewRegistry(testLogger())
	require.NoError(t, r.Register(stub("alpha", "")))

	err := r.Register(stub("alpha", ""))
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestRegistryDuplicateShortcut(t *testing.T) {
	r := NewRegistry(testLogger())
	require.NoError(t, r.Register(stub("alpha", "a")))

	err := r.Register(stub("beta", "a"))
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestRegistryAdaptersSorted(t *testing.T) {
	r := NewRegistry(testLogger())
	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(stub(id, "")))
	}

	var ids []string
	for _, a := range r.Adapters() {
		ids = append(ids, a.Descriptor().ID)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, ids)
}

func TestRegistryShortcut(t *testing.T) {
	r := NewRegistry(testLogger())
	require.NoError(t, r.Register(stub("wikipedia", "w")))

	id, ok := r.Shortcut("w")
	require.True(t, ok)
	assert.Equal(t, "wikipedia", id)

	_, ok = r.Shortcut("z")
	assert.False(t, ok)
}

func TestRegistryInitExcludesFailedBackend(t *testing.T) {
	r := NewRegistry(testLogger())
	healthy := stub("healthy", "h")
	broken := stub("broken", "b")
	broken.initErr = errors.New("handshake refused")
	require.NoError(t, r.Register(healthy))
	require.NoError(t, r.Register(broken))

	r.Init(context.Background(), nil)

	assert.True(t, healthy.inited)
	assert.True(t, broken.inited)

	_, err := r.Get("broken")
	assert.ErrorIs(t, err, domain.ErrBackendNotFound, "failed init removes the backend")
	_, ok := r.Shortcut("b")
	assert.False(t, ok, "removal releases the shortcut")

	_, err = r.Get("healthy")
	assert.NoError(t, err, "other backends stay registered")
}

func TestRegistryInitInjectsTokenStore(t *testing.T) {
	r := NewRegistry(testLogger())
	a := stub("tokenful", "")
	require.NoError(t, r.Register(a))

	store := mapTokenStore{}
	r.Init(context.Background(), store)

	require.NotNil(t, a.store)
	require.NoError(t, a.store.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, ok, err := a.store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
