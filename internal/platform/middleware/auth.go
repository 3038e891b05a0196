package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AdminValidator validates bearer tokens for the administrative API.
type AdminValidator struct {
	signingKey []byte
}

// NewAdminValidator builds a validator over a shared HMAC signing key.
func NewAdminValidator(signingKey string) *AdminValidator {
	return &AdminValidator{signingKey: []byte(signingKey)}
}

// Validate parses the token and checks the admin role claim.
func (v *AdminValidator) Validate(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.signingKey, nil
	})
	if err != nil {
		return err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["role"] != "admin" {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

// RequireAdmin guards administrative endpoints with a bearer token check.
func RequireAdmin(validator *AdminValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				unauthorized(w)
				return
			}
			if err := validator.Validate(token); err != nil {
				logger.WarnContext(r.Context(), "unauthorized admin access",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
