package controllers

import (
	"net/http"

	"go-cartshop/apperrors"
	"go-cartshop/logger"
	"go-cartshop/middleware"
	"go-cartshop/models"
	"go-cartshop/responses"
)

// identity returns the caller resolved by the auth guard, writing a 401 when
// the route was mounted without it.
func identity(w http.ResponseWriter, r *http.Request, log *logger.Logger) (models.Identity, bool) {
	who, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), log, w, apperrors.Unauthorized("Unauthorized"))
		return models.Identity{}, false
	}
	return who, true
}
