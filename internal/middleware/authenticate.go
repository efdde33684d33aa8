package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/stagelink/backend/internal/auth"
	"github.com/stagelink/backend/internal/logging"
)

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Authenticate attaches the caller's identity when a valid bearer token is
// present. Requests without a usable token continue anonymously; each handler
// decides whether identity is required.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				logging.FromContext(r.Context()).Debug("ignoring unverifiable token", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.WithUserID(r.Context(), userID)
			ctx = logging.With(ctx, slog.String("user_id", userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
