package testutil

import (
	"net/http"
	"time"

	"custodian/pkg/domain"
	"custodian/pkg/requestcontext"
)

// WithPrincipal stamps an identity candidate onto the request, standing in
// for the identity middleware in handler tests.
func WithPrincipal(req *http.Request, tenantID, email string) *http.Request {
	ctx := requestcontext.WithPrincipal(req.Context(), domain.Principal{
		ID:    domain.TenantID(tenantID),
		Email: email,
	})
	return req.WithContext(ctx)
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
