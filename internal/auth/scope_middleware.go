package auth

import (
	"net/http"

	"github.com/BradenHooton/loginguard/internal/models"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
)

// RequireScope rejects callers whose token does not carry requiredScope.
// Must run after Authenticate.
func RequireScope(requiredScope string) func(next http.Handler) http.Handler {
	return RequireAnyScope(requiredScope)
}

// RequireAnyScope allows the request if ANY of the provided scopes is granted
func RequireAnyScope(requiredScopes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			for _, scope := range requiredScopes {
				if models.HasScope(claims.Scopes, scope) {
					next.ServeHTTP(w, r)
					return
				}
			}

			pkghttp.WriteForbidden(w, "insufficient scope")
		})
	}
}

// RequireTokenType rejects tokens of any other type
func RequireTokenType(tokenType string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}
			if claims.Type != tokenType {
				pkghttp.WriteForbidden(w, "token type not permitted")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
