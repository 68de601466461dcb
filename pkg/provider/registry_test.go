package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/provider"
)

func TestRegistry_RegisterResolve(t *testing.T) {
	t.Parallel()

	reg := provider.NewRegistry()
	constructed := 0

	require.NoError(t, reg.Register("dev", func(ctx context.Context) (provider.Provider, error) {
		constructed++
		return provider.NewDevProvider(), nil
	}))

	p1, err := reg.Resolve(context.Background(), "dev")
	require.NoError(t, err)
	p2, err := reg.Resolve(context.Background(), "dev")
	require.NoError(t, err)

	assert.Same(t, p1, p2, "resolved instances should be cached")
	assert.Equal(t, 1, constructed, "factory should run once")
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := provider.NewRegistry()
	factory := func(ctx context.Context) (provider.Provider, error) {
		return provider.NewDevProvider(), nil
	}

	require.NoError(t, reg.Register("dev", factory))
	err := reg.Register("dev", factory)
	assert.ErrorIs(t, err, provider.ErrProviderAlreadyRegistered)
}

func TestRegistry_NilFactory(t *testing.T) {
	t.Parallel()

	reg := provider.NewRegistry()
	assert.ErrorIs(t, reg.Register("dev", nil), provider.ErrNilFactory)
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	t.Parallel()

	reg := provider.NewRegistry()
	_, err := reg.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)
}

func TestRegistry_FactoryError(t *testing.T) {
	t.Parallel()

	reg := provider.NewRegistry()
	boom := errors.New("bad credentials")
	require.NoError(t, reg.Register("fcm", func(ctx context.Context) (provider.Provider, error) {
		return nil, boom
	}))

	_, err := reg.Resolve(context.Background(), "fcm")
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_Names(t *testing.T) {
	t.Parallel()

	reg := provider.NewRegistry()
	factory := func(ctx context.Context) (provider.Provider, error) {
		return provider.NewDevProvider(), nil
	}

	require.NoError(t, reg.Register("fcm", factory))
	require.NoError(t, reg.Register("apns", factory))
	require.NoError(t, reg.Register("dev", factory))

	assert.Equal(t, []string{"apns", "dev", "fcm"}, reg.Names())
}
