package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodian/pkg/domain"
	"custodian/pkg/requestcontext"
)

const signingKey = "test-signing-key"

func signToken(t *testing.T, subject, email string, key string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestHMACValidator(t *testing.T) {
	v := NewHMACValidator(signingKey)

	t.Run("valid token yields claims", func(t *testing.T) {
		claims, err := v.ValidateToken(signToken(t, "tenant-1", "a@x.com", signingKey))
		require.NoError(t, err)
		assert.Equal(t, "tenant-1", claims.Subject)
		assert.Equal(t, "a@x.com", claims.Email)
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		_, err := v.ValidateToken(signToken(t, "tenant-1", "a@x.com", "other-key"))
		assert.Error(t, err)
	})

	t.Run("missing claims rejected", func(t *testing.T) {
		_, err := v.ValidateToken(signToken(t, "", "a@x.com", signingKey))
		assert.Error(t, err)
		_, err = v.ValidateToken(signToken(t, "tenant-1", "", signingKey))
		assert.Error(t, err)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		claims := jwt.MapClaims{
			"sub":   "tenant-1",
			"email": "a@x.com",
			"exp":   time.Now().Add(-time.Hour).Unix(),
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(signingKey))
		require.NoError(t, err)
		_, err = v.ValidateToken(signed)
		assert.Error(t, err)
	})
}

func TestRequireIdentity(t *testing.T) {
	validator := NewHMACValidator(signingKey)
	logger := slog.Default()

	var captured domain.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = requestcontext.Principal(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireIdentity(validator, logger)(next)

	do := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/anything", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	t.Run("valid bearer token injects the principal", func(t *testing.T) {
		rr := do("Bearer " + signToken(t, "tenant-1", "a@x.com", signingKey))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, domain.TenantID("tenant-1"), captured.ID)
		assert.Equal(t, "a@x.com", captured.Email)
	})

	t.Run("missing header is unauthorized", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("").Code)
	})

	t.Run("malformed header is unauthorized", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("Token abc").Code)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("Bearer not.a.jwt").Code)
	})

	t.Run("path-hostile subject is unauthorized", func(t *testing.T) {
		rr := do("Bearer " + signToken(t, "../escape", "a@x.com", signingKey))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
