package service

import (
	"context"
	"testing"

	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/storage/memory"
	"gw-ipn-relay/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryRegistry() (*RegistryService, *memory.Store) {
	store := memory.NewStore()
	return NewRegistryService(store, logger.NewDiscard()), store
}

func TestValidatePrincipal(t *testing.T) {
	p, err := ValidatePrincipal(" 123456789 ")
	require.NoError(t, err)
	assert.Equal(t, "123456789", p)

	_, err = ValidatePrincipal("-100200300")
	assert.NoError(t, err)

	for _, bad := range []string{"", "abc", "@someone", "12.5"} {
		_, err := ValidatePrincipal(bad)
		assert.ErrorIs(t, err, custom_err.ErrInvalidInput, bad)
	}
}

func TestValidateForwardURL(t *testing.T) {
	for _, ok := range []string{"https://example.com/ipn", "http://10.0.0.1:8080/hook"} {
		got, err := ValidateForwardURL(" " + ok + " ")
		require.NoError(t, err)
		assert.Equal(t, ok, got)
	}
	for _, bad := range []string{"", "example.com/ipn", "ftp://example.com", "https://", "not a url"} {
		_, err := ValidateForwardURL(bad)
		assert.ErrorIs(t, err, custom_err.ErrInvalidURL, bad)
	}
}

func TestRegistryService_RegisterIsIdempotent(t *testing.T) {
	svc, _ := newMemoryRegistry()
	ctx := context.Background()

	added, err := svc.Register(ctx, "1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = svc.Register(ctx, "1")
	require.NoError(t, err)
	assert.False(t, added)

	ok, err := svc.IsRegistered(ctx, "1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistryService_AudienceRequiresRegistration(t *testing.T) {
	svc, _ := newMemoryRegistry()
	ctx := context.Background()

	_, _ = svc.Register(ctx, "10")
	_, _ = svc.Register(ctx, "30")
	require.NoError(t, svc.AddNotify(ctx, "10"))
	require.NoError(t, svc.AddNotify(ctx, "20"))
	require.NoError(t, svc.AddNotify(ctx, "10"))

	list, err := svc.NotifyList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "20"}, list)

	audience, err := svc.Audience(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10"}, audience)

	removed, err := svc.RemoveNotify(ctx, "10")
	require.NoError(t, err)
	assert.True(t, removed)

	audience, err = svc.Audience(ctx)
	require.NoError(t, err)
	assert.Empty(t, audience)
}

func TestRegistryService_AddNotifyRejectsNonNumeric(t *testing.T) {
	svc, store := newMemoryRegistry()

	err := svc.AddNotify(context.Background(), "@user")

	assert.ErrorIs(t, err, custom_err.ErrInvalidInput)
	list, _ := store.List(context.Background(), "notified")
	assert.Empty(t, list)
}

func TestRegistryService_ForwardLifecycle(t *testing.T) {
	svc, _ := newMemoryRegistry()
	ctx := context.Background()

	count, err := svc.AddForward(ctx, "https://a.example/ipn")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = svc.AddForward(ctx, "https://b.example/ipn")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = svc.AddForward(ctx, "https://a.example/ipn")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = svc.AddForward(ctx, "a.example")
	assert.ErrorIs(t, err, custom_err.ErrInvalidURL)

	removed, remaining, err := svc.RemoveForward(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "https://b.example/ipn", removed)
	assert.Equal(t, 1, remaining)

	_, _, err = svc.RemoveForward(ctx, "5")
	assert.ErrorIs(t, err, custom_err.ErrNotFound)
	_, _, err = svc.RemoveForward(ctx, "https://c.example/ipn")
	assert.ErrorIs(t, err, custom_err.ErrNotFound)

	removed, remaining, err = svc.RemoveForward(ctx, "https://a.example/ipn")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example/ipn", removed)
	assert.Equal(t, 0, remaining)
}

func TestRegistryService_ClearForward(t *testing.T) {
	svc, _ := newMemoryRegistry()
	ctx := context.Background()

	_, _ = svc.AddForward(ctx, "https://a.example/ipn")
	_, _ = svc.AddForward(ctx, "https://b.example/ipn")

	cleared, err := svc.ClearForward(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)

	list, err := svc.ForwardList(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	cleared, err = svc.ClearForward(ctx)
	require.NoError(t, err)
	assert.Zero(t, cleared)
}
