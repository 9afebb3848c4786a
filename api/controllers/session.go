package controllers

import (
	"net/http"

	"github.com/benjamins-shop/storefront-backend/api/middleware"
	"github.com/benjamins-shop/storefront-backend/api/responses"
	pkgerrors "github.com/benjamins-shop/storefront-backend/pkg/errors"
	"github.com/benjamins-shop/storefront-backend/pkg/logger"
)

// GuestSessionInfo returns the session this request resolved to. Clients call
// it to establish or validate their token; the resolver middleware has already
// created a session when needed.
func GuestSessionInfo(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resolved := middleware.SessionFromContext(r.Context())
		if resolved == nil || resolved.Session == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session context missing"))
			return
		}

		payload := sessionResponse{
			Token:     resolved.Session.Token,
			ExpiresAt: resolved.Session.ExpiresAt,
			Created:   resolved.Created,
		}
		responses.WriteSuccessSession(w, http.StatusOK, payload, resolved.Session.Token)
	}
}
