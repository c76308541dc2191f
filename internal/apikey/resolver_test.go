package apikey

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, error) { return "", errors.New("redis down") }
func (brokenStore) Set(context.Context, string, string) error   { return errors.New("redis down") }

func TestResolve_Precedence(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := NewResolver(map[string]string{}, store, map[string]string{ProviderPrivateKey: "default-key"}, nil)

	v, origin := r.Resolve(ctx, ProviderPrivateKey)
	assert.Equal(t, "default-key", v)
	assert.Equal(t, OriginDefault, origin)

	require.NoError(t, r.SetOverride(ctx, ProviderPrivateKey, " override-key "))
	v, origin = r.Resolve(ctx, ProviderPrivateKey)
	assert.Equal(t, "override-key", v)
	assert.Equal(t, OriginOverride, origin)

	r.Runtime[ProviderPrivateKey] = "runtime-key"
	v, origin = r.Resolve(ctx, ProviderPrivateKey)
	assert.Equal(t, "runtime-key", v)
	assert.Equal(t, OriginRuntime, origin)
}

func TestResolve_ClearOverrideFallsBack(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(nil, NewMemoryStore(), map[string]string{ProviderPrivateKey: "d"}, nil)
	require.NoError(t, r.SetOverride(ctx, ProviderPrivateKey, "o"))
	require.NoError(t, r.SetOverride(ctx, ProviderPrivateKey, ""))

	v, origin := r.Resolve(ctx, ProviderPrivateKey)
	assert.Equal(t, "d", v)
	assert.Equal(t, OriginDefault, origin)
}

func TestResolve_BrokenStoreDegrades(t *testing.T) {
	r := NewResolver(nil, brokenStore{}, map[string]string{ProviderPrivateKey: "d"}, nil)
	v, origin := r.Resolve(context.Background(), ProviderPrivateKey)
	assert.Equal(t, "d", v)
	assert.Equal(t, OriginDefault, origin)
}

func TestResolve_Unset(t *testing.T) {
	r := NewResolver(nil, nil, nil, nil)
	v, origin := r.Resolve(context.Background(), ProviderPublicKey)
	assert.Empty(t, v)
	assert.Equal(t, OriginNone, origin)
	assert.ErrorIs(t, r.SetOverride(context.Background(), ProviderPublicKey, "x"), ErrNoStore)
}

func TestSource_APIKey(t *testing.T) {
	r := NewResolver(map[string]string{ProviderPrivateKey: "k"}, nil, nil, nil)
	key, err := r.Source(ProviderPrivateKey).APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "k", key)
}
