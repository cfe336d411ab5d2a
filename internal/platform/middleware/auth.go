package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// ActorValidator validates a bearer token and resolves the acting party.
type ActorValidator interface {
	ValidateToken(tokenString string) (*ActorClaims, error)
}

// ActorClaims carries the authenticated actor identity.
type ActorClaims struct {
	ActorID string
}

type contextKeyActor struct{}

// GetActor retrieves the authenticated actor id from the context.
func GetActor(ctx context.Context) string {
	actor, ok := ctx.Value(contextKeyActor{}).(string)
	if !ok {
		return ""
	}
	return actor
}

// WithActor injects an actor id directly; tests use it to bypass the token
// round trip.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, contextKeyActor{}, actor)
}

// RequireActor rejects requests without a valid bearer token and stores the
// resolved actor id in the request context.
func RequireActor(validator ActorValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", GetRequestID(ctx),
					"error", err,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(ctx, claims.ActorID)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
