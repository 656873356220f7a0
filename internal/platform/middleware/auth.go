package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"custodian/pkg/domain"
	"custodian/pkg/requestcontext"
)

// IdentityClaims is what the external identity provider asserts about a
// caller: a stable subject and an email. The whitelist gate decides whether
// that identity may hold tenant data; this middleware only authenticates.
type IdentityClaims struct {
	Subject string
	Email   string
}

// TokenValidator validates bearer tokens from the external identity provider.
type TokenValidator interface {
	ValidateToken(tokenString string) (*IdentityClaims, error)
}

// HMACValidator validates HS256 tokens with a shared signing key.
type HMACValidator struct {
	signingKey []byte
}

func NewHMACValidator(signingKey string) *HMACValidator {
	return &HMACValidator{signingKey: []byte(signingKey)}
}

type identityTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (v *HMACValidator) ValidateToken(tokenString string) (*IdentityClaims, error) {
	var claims identityTokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("token missing subject or email claim")
	}
	return &IdentityClaims{Subject: claims.Subject, Email: claims.Email}, nil
}

// RequireIdentity authenticates the bearer token and injects the resulting
// identity candidate into the request context. Authorization (the whitelist
// check) happens in the services behind the handler, not here.
func RequireIdentity(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				writeUnauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token", "error", err)
				writeUnauthorized(w)
				return
			}

			tenantID, err := domain.ParseTenantID(claims.Subject)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - unusable subject", "error", err)
				writeUnauthorized(w)
				return
			}

			ctx := requestcontext.WithPrincipal(r.Context(), domain.Principal{
				ID:    tenantID,
				Email: claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized"}`))
}
