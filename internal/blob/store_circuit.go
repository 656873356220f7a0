package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"custodian/pkg/platform/circuit"
	"custodian/pkg/platform/sentinel"
)

// While the breaker is open, one call in probeInterval is let through to
// detect recovery; the rest fail fast.
const probeInterval = 8

// CircuitStore wraps a Store with a circuit breaker. When the backing store
// keeps failing, calls fail fast with sentinel.ErrUnavailable instead of
// piling timeouts onto a dead dependency. ErrUnavailable is transient to the
// retry policy, so callers degrade rather than break.
type CircuitStore struct {
	inner   Store
	breaker *circuit.Breaker
	logger  *slog.Logger
	calls   atomic.Uint64
}

func NewCircuitStore(inner Store, breaker *circuit.Breaker, logger *slog.Logger) *CircuitStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitStore{inner: inner, breaker: breaker, logger: logger}
}

// admit decides whether a call may reach the backing store.
func (s *CircuitStore) admit() error {
	if !s.breaker.IsOpen() {
		return nil
	}
	if s.calls.Add(1)%probeInterval == 0 {
		return nil
	}
	return fmt.Errorf("%s circuit open: %w", s.breaker.Name(), sentinel.ErrUnavailable)
}

// observe feeds the call outcome to the breaker. Not-found is a healthy
// response from the dependency's point of view.
func (s *CircuitStore) observe(err error) {
	if err == nil || errors.Is(err, sentinel.ErrNotFound) {
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.Info("circuit closed", "name", s.breaker.Name())
		}
		return
	}
	if _, change := s.breaker.RecordFailure(); change.Opened {
		s.logger.Warn("circuit opened", "name", s.breaker.Name(), "error", err)
	}
}

func (s *CircuitStore) Put(ctx context.Context, obj Object) (string, error) {
	if err := s.admit(); err != nil {
		return "", err
	}
	ref, err := s.inner.Put(ctx, obj)
	s.observe(err)
	return ref, err
}

func (s *CircuitStore) Get(ctx context.Context, ref string) (Object, error) {
	if err := s.admit(); err != nil {
		return Object{}, err
	}
	obj, err := s.inner.Get(ctx, ref)
	s.observe(err)
	return obj, err
}

func (s *CircuitStore) Stat(ctx context.Context, ref string) (Object, error) {
	if err := s.admit(); err != nil {
		return Object{}, err
	}
	obj, err := s.inner.Stat(ctx, ref)
	s.observe(err)
	return obj, err
}

func (s *CircuitStore) Delete(ctx context.Context, ref string) error {
	if err := s.admit(); err != nil {
		return err
	}
	err := s.inner.Delete(ctx, ref)
	s.observe(err)
	return err
}

func (s *CircuitStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := s.admit(); err != nil {
		return nil, err
	}
	paths, err := s.inner.List(ctx, prefix)
	s.observe(err)
	return paths, err
}
