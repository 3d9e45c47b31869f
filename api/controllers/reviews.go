package controllers

import (
	"net/http"

	"github.com/deorejayesh9663/UniTrade/api/middleware"
	"github.com/deorejayesh9663/UniTrade/api/responses"
	"github.com/deorejayesh9663/UniTrade/api/validators"
	"github.com/deorejayesh9663/UniTrade/internal/reviews"
	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
)

type sellerReviewsResponse struct {
	Summary reviews.Summary `json:"summary"`
	Reviews []models.Review `json:"reviews"`
}

// SellerReviews returns a seller's reviews newest first with their summary.
func SellerReviews(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "review service unavailable"))
			return
		}
		sellerID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		items, err := svc.ReviewsFor(ctx, sellerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		summary, err := svc.SellerSummary(ctx, sellerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sellerReviewsResponse{Summary: summary, Reviews: items})
	}
}

func ReviewCreate(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "review service unavailable"))
			return
		}
		sellerID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body reviews.AddReviewInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		review, err := svc.AddReview(ctx, middleware.PrincipalFromContext(ctx), sellerID, body.Rating, body.Text)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}
