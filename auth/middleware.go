package auth

import (
	"context"
	"net/http"

	"github.com/user/pokesphere-go/apperror"
)

// contextKey is a private type for context keys, so no other package can
// collide with them.
type contextKey string

// claimsContextKey stores the verified access-token claims.
const claimsContextKey contextKey = "auth_claims"

// NewContextWithClaims returns a child context carrying the claims.
func NewContextWithClaims(ctx context.Context, claims *TokenClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext extracts the claims stored by the middleware.
func ClaimsFromContext(ctx context.Context) (*TokenClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*TokenClaims)
	return claims, ok
}

// RequireAccessToken authenticates requests that carry the access token as
// a `token` query parameter, which is how the browser client sends it. A
// missing token answers 401; a token that fails verification answers 403,
// the signal that triggers the client's refresh flow.
func RequireAccessToken(tokens *TokenService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.URL.Query().Get("token")
			if tokenString == "" {
				WriteError(w, r, apperror.NewAuthError("unauthorized", nil))
				return
			}

			claims, err := tokens.VerifyAccess(tokenString)
			if err != nil {
				WriteError(w, r, err)
				return
			}

			ctx := NewContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
