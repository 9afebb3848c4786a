package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/benjamins-shop/storefront-backend/api/middleware"
	"github.com/benjamins-shop/storefront-backend/api/responses"
	"github.com/benjamins-shop/storefront-backend/api/validators"
	cartsvc "github.com/benjamins-shop/storefront-backend/internal/cart"
	"github.com/benjamins-shop/storefront-backend/internal/sessions"
	"github.com/benjamins-shop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/benjamins-shop/storefront-backend/pkg/errors"
	"github.com/benjamins-shop/storefront-backend/pkg/logger"
)

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	// Omitted quantity means one unit.
	Quantity *int `json:"quantity" validate:"omitempty,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func sessionFromRequest(r *http.Request) (*models.GuestSession, *sessions.Resolved, error) {
	resolved := middleware.SessionFromContext(r.Context())
	if resolved == nil || resolved.Session == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInternal, "session context missing")
	}
	return resolved.Session, resolved, nil
}

// GetCart returns the session's rendered cart. A store outage on the read
// path degrades to an empty cart so browsing is never blocked; mutations
// still surface their errors.
func GetCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		session, resolved, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), session)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil &&
				typed.Code() != pkgerrors.CodeInternal && typed.Code() != pkgerrors.CodeDependency {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if logg != nil {
				logg.Warn(r.Context(), "cart read degraded to empty: "+err.Error())
			}
			view = &cartsvc.View{Items: []cartsvc.Line{}}
		}

		responses.WriteSuccessSession(w, http.StatusOK, view, resolved.Session.Token)
	}
}

// AddCartItem adds quantity to the session's line for a product, creating the
// line when absent.
func AddCartItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		session, resolved, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity := 1
		if payload.Quantity != nil {
			quantity = *payload.Quantity
		}

		view, err := svc.Add(r.Context(), session, payload.ProductID, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessSession(w, http.StatusOK, view, resolved.Session.Token)
	}
}

// UpdateCartItem sets a line's quantity absolutely; zero or less removes it.
func UpdateCartItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		session, resolved, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUIDParam(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Update(r.Context(), session, productID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessSession(w, http.StatusOK, view, resolved.Session.Token)
	}
}

// RemoveCartItem deletes a line; removing an absent line is not an error.
func RemoveCartItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		session, resolved, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUIDParam(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Remove(r.Context(), session, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessSession(w, http.StatusOK, view, resolved.Session.Token)
	}
}

// ClearCart empties the session's cart.
func ClearCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		session, resolved, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Clear(r.Context(), session); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), session)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessSession(w, http.StatusOK, view, resolved.Session.Token)
	}
}
