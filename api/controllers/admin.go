package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/deorejayesh9663/UniTrade/api/middleware"
	"github.com/deorejayesh9663/UniTrade/api/responses"
	"github.com/deorejayesh9663/UniTrade/api/validators"
	"github.com/deorejayesh9663/UniTrade/internal/admin"
	"github.com/deorejayesh9663/UniTrade/internal/listings"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"github.com/deorejayesh9663/UniTrade/pkg/pagination"
)

type cleanupPayload struct {
	// Before overrides the retention cutoff.
	Before *time.Time `json:"before,omitempty"`
}

func AdminStats(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}
		stats, err := svc.ComputeStats(ctx, middleware.PrincipalFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func AdminSettings(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}
		settings, err := svc.Settings(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}

// AdminUpdateFee sets the platform fee. Sending expected_updated_at makes the
// write fail with a conflict when another admin changed it first.
func AdminUpdateFee(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}
		var body admin.UpdateFeeInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		settings, err := svc.UpdateFee(ctx, middleware.PrincipalFromContext(ctx), body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}

// AdminCleanup purges sold listings older than the cutoff. A partial pass
// answers 503 with the purge count in the details.
func AdminCleanup(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}
		var body cleanupPayload
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		var cutoff time.Time
		if body.Before != nil {
			cutoff = *body.Before
		}
		result, err := svc.RunCleanup(ctx, middleware.PrincipalFromContext(ctx), cutoff)
		if err != nil {
			if result.Cutoff.IsZero() {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cleanup incomplete").
				WithDetails(map[string]any{"purged": result.Purged, "cutoff": result.Cutoff}))
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminListings pages through every listing for moderation, sold ones
// included. Query parameters: cursor, limit.
func AdminListings(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		page, err := svc.ListAll(ctx, middleware.PrincipalFromContext(ctx), strings.TrimSpace(r.URL.Query().Get("cursor")), limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
