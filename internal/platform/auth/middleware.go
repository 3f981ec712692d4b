package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/NomanAhmed1999/vatika/internal/platform/httpx"
)

// TokenVerifier validates a bearer token and returns the identity it encodes.
type TokenVerifier interface {
	Verify(token string) (*Identity, error)
}

// RequireAdmin enforces a valid admin bearer token and stores the identity on the request context.
func RequireAdmin(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				respondAuthError(w, r, http.StatusInternalServerError, "auth_unavailable", "authentication is not configured")
				return
			}

			token, ok := extractBearerToken(r)
			if !ok {
				respondAuthError(w, r, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				switch {
				case errors.Is(err, ErrTokenExpired):
					respondAuthError(w, r, http.StatusUnauthorized, "token_expired", "bearer token has expired")
				default:
					respondAuthError(w, r, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
				}
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSuperuser allows only identities flagged as superuser through. It must run after RequireAdmin.
func RequireSuperuser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok || !identity.Superuser {
				respondAuthError(w, r, http.StatusForbidden, "forbidden", "superuser access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func respondAuthError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	httpx.WriteError(r.Context(), w, httpx.NewError(code, message, status))
}
