package middleware

import (
	"context"
	"net/http"
	"strings"

	"go-cartshop/apperrors"
	"go-cartshop/logger"
	"go-cartshop/models"
	"go-cartshop/responses"
)

// Key type for context
type contextKey string

const UserContextKey = contextKey("user")

type identityResolver interface {
	Resolve(token string) (models.Identity, error)
}

// AuthGuard resolves the bearer token of every protected request to a user identity.
type AuthGuard struct {
	tokens identityResolver
	log    *logger.Logger
}

func NewAuthGuard(tokens identityResolver, log *logger.Logger) *AuthGuard {
	return &AuthGuard{tokens: tokens, log: log}
}

// Middleware verifies JWT tokens and attaches the identity to the context
func (g *AuthGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		tokenStr = strings.TrimSpace(tokenStr)
		if !ok || tokenStr == "" {
			responses.WriteError(r.Context(), g.log, w, apperrors.Unauthorized("No token provided"))
			return
		}

		identity, err := g.tokens.Resolve(tokenStr)
		if err != nil {
			responses.WriteError(r.Context(), g.log, w, apperrors.Unauthorized("Invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, identity)
		if g.log != nil {
			ctx = g.log.WithUserID(ctx, identity.UserID.Hex())
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the identity set by AuthGuard.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(UserContextKey).(models.Identity)
	return identity, ok
}
