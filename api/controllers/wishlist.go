package controllers

import (
	"net/http"

	"github.com/deorejayesh9663/UniTrade/api/middleware"
	"github.com/deorejayesh9663/UniTrade/api/responses"
	"github.com/deorejayesh9663/UniTrade/api/validators"
	"github.com/deorejayesh9663/UniTrade/internal/wishlist"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
)

// WishlistList returns the caller's saved items with availability flags.
func WishlistList(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		items, err := svc.ListForUser(ctx, middleware.PrincipalFromContext(ctx).UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func WishlistStatus(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		saved, err := svc.IsSaved(ctx, middleware.PrincipalFromContext(ctx).UserID, itemID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, wishlist.ToggleResult{Saved: saved})
	}
}

// WishlistToggle saves the listing, or unsaves it when already saved.
func WishlistToggle(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		saved, err := svc.ToggleSave(ctx, middleware.PrincipalFromContext(ctx).UserID, itemID, nil)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, wishlist.ToggleResult{Saved: saved})
	}
}
