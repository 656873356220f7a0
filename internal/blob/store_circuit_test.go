package blob

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodian/pkg/platform/circuit"
	"custodian/pkg/platform/sentinel"
)

// brokenStore fails every call with the configured error.
type brokenStore struct {
	Store
	err error
}

func (s *brokenStore) Get(ctx context.Context, ref string) (Object, error) {
	if s.err != nil {
		return Object{}, s.err
	}
	return s.Store.Get(ctx, ref)
}

func (s *brokenStore) Put(ctx context.Context, obj Object) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.Store.Put(ctx, obj)
}

func TestCircuitStorePassesThroughWhenClosed(t *testing.T) {
	ctx := context.Background()
	inner := NewInMemory()
	store := NewCircuitStore(inner, circuit.New("blob-store"), nil)

	obj := newObject("tenant-1", "payload")
	ref, err := store.Put(ctx, obj)
	require.NoError(t, err)

	got, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, obj.Bytes, got.Bytes)
}

func TestCircuitStoreFailsFastWhenOpen(t *testing.T) {
	ctx := context.Background()
	backendErr := errors.New("connection reset")
	inner := &brokenStore{Store: NewInMemory(), err: backendErr}
	breaker := circuit.New("blob-store", circuit.WithFailureThreshold(2))
	store := NewCircuitStore(inner, breaker, nil)

	// Failures up to the threshold reach the backend and surface its error.
	_, err := store.Get(ctx, "ref")
	assert.ErrorIs(t, err, backendErr)
	_, err = store.Get(ctx, "ref")
	assert.ErrorIs(t, err, backendErr)
	require.True(t, breaker.IsOpen())

	// Open circuit: calls fail fast with the transient sentinel instead.
	_, err = store.Get(ctx, "ref")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.NotErrorIs(t, err, backendErr)
}

func TestCircuitStoreNotFoundIsHealthy(t *testing.T) {
	ctx := context.Background()
	breaker := circuit.New("blob-store", circuit.WithFailureThreshold(1))
	store := NewCircuitStore(NewInMemory(), breaker, nil)

	for i := 0; i < 5; i++ {
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	}
	assert.False(t, breaker.IsOpen())
}

func TestCircuitStoreRecoversThroughProbes(t *testing.T) {
	ctx := context.Background()
	inner := NewInMemory()
	flaky := &brokenStore{Store: inner, err: errors.New("down")}
	breaker := circuit.New("blob-store",
		circuit.WithFailureThreshold(1),
		circuit.WithSuccessThreshold(1))
	store := NewCircuitStore(flaky, breaker, nil)

	_, err := store.Get(ctx, "ref")
	require.Error(t, err)
	require.True(t, breaker.IsOpen())

	// Backend heals; probe traffic eventually closes the breaker.
	flaky.err = nil
	obj := newObject("tenant-1", "payload")
	_, putErr := inner.Put(ctx, obj)
	require.NoError(t, putErr)

	recovered := false
	for i := 0; i < 32 && !recovered; i++ {
		if _, err := store.Get(ctx, obj.Path); err == nil {
			recovered = true
		}
	}
	assert.True(t, recovered)
	assert.False(t, breaker.IsOpen())
}
