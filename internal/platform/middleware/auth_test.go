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
)

const testKey = "test-signing-key"

func signToken(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestRequireAdmin(t *testing.T) {
	validator := NewAdminValidator(testKey)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := RequireAdmin(validator, slog.New(slog.DiscardHandler))(next)

	do := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/municipalities", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rr := httptest.NewRecorder()
		guarded.ServeHTTP(rr, req)
		return rr
	}

	t.Run("valid admin token passes", func(t *testing.T) {
		token := signToken(t, testKey, jwt.MapClaims{
			"role": "admin",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		assert.Equal(t, http.StatusOK, do("Bearer "+token).Code)
	})

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("").Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("Basic abc").Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		token := signToken(t, testKey, jwt.MapClaims{"role": "citizen"})
		assert.Equal(t, http.StatusUnauthorized, do("Bearer "+token).Code)
	})

	t.Run("wrong key", func(t *testing.T) {
		token := signToken(t, "other-key", jwt.MapClaims{"role": "admin"})
		assert.Equal(t, http.StatusUnauthorized, do("Bearer "+token).Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, testKey, jwt.MapClaims{
			"role": "admin",
			"exp":  time.Now().Add(-time.Hour).Unix(),
		})
		assert.Equal(t, http.StatusUnauthorized, do("Bearer "+token).Code)
	})
}
