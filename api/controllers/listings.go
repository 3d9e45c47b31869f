package controllers

import (
	"net/http"
	"strings"

	"github.com/deorejayesh9663/UniTrade/api/middleware"
	"github.com/deorejayesh9663/UniTrade/api/responses"
	"github.com/deorejayesh9663/UniTrade/api/validators"
	"github.com/deorejayesh9663/UniTrade/internal/listings"
	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"github.com/deorejayesh9663/UniTrade/pkg/pagination"
)

// ListingsList serves the browse feed. Query: category, q, max_price, scope,
// college, cursor, limit. The campus defaults to the caller's college.
func ListingsList(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		query := r.URL.Query()
		scope, err := enums.ParseListingScope(query.Get("scope"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid scope"))
			return
		}
		maxPrice, err := validators.ParseQueryDecimal(r, "max_price")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		college := strings.TrimSpace(query.Get("college"))
		if college == "" {
			college = middleware.PrincipalFromContext(ctx).College
		}

		page, err := svc.ListActivePage(ctx, listings.ListFilter{
			Category: query.Get("category"),
			Search:   query.Get("q"),
			MaxPrice: maxPrice,
			Scope:    scope,
			College:  college,
		}, strings.TrimSpace(query.Get("cursor")), limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func ListingGet(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		listing, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// ListingRelated returns other active listings in the same category.
func ListingRelated(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", listings.DefaultRelatedLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		related, err := svc.Related(ctx, id, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, related)
	}
}

func SellerListings(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}
		sellerID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		items, err := svc.ListBySeller(ctx, sellerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ListingCreate(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}
		var body listings.CreateListingInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		listing, err := svc.Create(ctx, middleware.PrincipalFromContext(ctx), body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

func ListingUpdate(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body listings.UpdateListingInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		listing, err := svc.Update(ctx, middleware.PrincipalFromContext(ctx), id, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func ListingMarkSold(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		listing, err := svc.MarkSold(ctx, middleware.PrincipalFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func ListingDelete(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Delete(ctx, middleware.PrincipalFromContext(ctx), id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
