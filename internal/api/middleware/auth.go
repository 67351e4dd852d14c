package middleware

import (
	"context"
	"net/http"

	"github.com/dom/tps-identity/internal/token"
)

type contextKey string

const (
	ClaimsKey contextKey = "claims"
)

// TokenVerifier turns a raw bearer token into verified claims.
type TokenVerifier interface {
	VerifyToken(raw string) (*token.SessionClaims, error)
}

func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteUnauthorized(w, "Authorization header required")
				return
			}

			raw, ok := token.ExtractBearer(authHeader)
			if !ok {
				WriteUnauthorized(w, "Invalid authorization header")
				return
			}

			claims, err := verifier.VerifyToken(raw)
			if err != nil {
				WriteUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			if holder, ok := r.Context().Value(userIDHolderKey).(*string); ok {
				*holder = claims.Subject
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetClaims(ctx context.Context) (*token.SessionClaims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*token.SessionClaims)
	return claims, ok && claims != nil
}
