package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "trustledger/pkg/domain"
)

// JWTValidator defines the interface for validating JWT tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	// Principal is the authenticated caller every mutation is attributed to.
	// It comes from the token's subject, never from request arguments.
	Principal string
}

type contextKeyCaller struct{}

// GetCaller retrieves the authenticated caller principal from the context.
// Empty means the request never passed RequireAuth.
func GetCaller(ctx context.Context) id.Principal {
	caller, ok := ctx.Value(contextKeyCaller{}).(string)
	if !ok {
		return ""
	}
	return id.Principal(caller)
}

// WithCaller injects a caller principal into a context. Useful for service and
// handler tests that don't run the full HTTP middleware chain.
func WithCaller(ctx context.Context, caller id.Principal) context.Context {
	return context.WithValue(ctx, contextKeyCaller{}, caller.String())
}

// RequireAuth validates the bearer token and stores the caller principal in
// the request context. Requests without a valid token never reach handlers.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, contextKeyCaller{}, claims.Principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
