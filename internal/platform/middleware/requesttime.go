package middleware

import (
	"net/http"
	"time"

	"custodian/pkg/requestcontext"
)

// RequestTime stamps the arrival time into the request context. Everything
// downstream reads the same "now" through requestcontext.Now, so timestamps
// within one request never disagree.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
