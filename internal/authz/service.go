// Package authz decides whether an externally-authenticated identity may hold
// tenant-scoped data. The gate is a pure check: it never creates principals
// or touches storage, and it re-reads the whitelist on every call.
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"custodian/internal/platform/metrics"
	"custodian/internal/whitelist"
	"custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
)

// Service gates tenant access on whitelist membership.
type Service struct {
	whitelist whitelist.Provider
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(provider whitelist.Provider, opts ...Option) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("whitelist provider is required")
	}
	s := &Service{
		whitelist: provider,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Authorize checks a candidate identity against the whitelist and returns the
// normalized principal on success.
//
// Errors: CodeInvalidInput when the candidate lacks a valid external identity
// or email; CodeNotWhitelisted when the email is absent from the whitelist;
// CodeWhitelistMissing when the whitelist record itself is absent or
// unreadable (operator misconfiguration, not user error).
func (s *Service) Authorize(ctx context.Context, candidate domain.Principal) (domain.Principal, error) {
	if _, err := domain.ParseTenantID(candidate.ID.String()); err != nil {
		s.denied("invalid_identity")
		return domain.Principal{}, err
	}
	email := domain.NormalizeEmail(candidate.Email)
	if email == "" {
		s.denied("invalid_identity")
		return domain.Principal{}, dErrors.New(dErrors.CodeInvalidInput, "email required")
	}

	// Fresh read every time: revocation must take effect immediately.
	set, err := s.whitelist.Read(ctx)
	if err != nil {
		if errors.Is(err, whitelist.ErrConfigurationMissing) {
			s.denied("whitelist_missing")
			s.logger.ErrorContext(ctx, "whitelist configuration missing")
			return domain.Principal{}, dErrors.Wrap(err, dErrors.CodeWhitelistMissing, "whitelist unavailable")
		}
		s.denied("whitelist_missing")
		s.logger.ErrorContext(ctx, "whitelist read failed", "error", err)
		return domain.Principal{}, dErrors.Wrap(err, dErrors.CodeWhitelistMissing, "whitelist unreadable")
	}

	if !set.Contains(email) {
		s.denied("not_whitelisted")
		s.logger.InfoContext(ctx, "authorization denied", "tenant_id", candidate.ID.String())
		return domain.Principal{}, dErrors.New(dErrors.CodeNotWhitelisted, "email not whitelisted")
	}

	if s.metrics != nil {
		s.metrics.AuthorizationsAllowed.Inc()
	}
	return domain.Principal{ID: candidate.ID, Email: email}, nil
}

func (s *Service) denied(reason string) {
	if s.metrics != nil {
		s.metrics.AuthorizationsDenied.WithLabelValues(reason).Inc()
	}
}
