package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/deorejayesh9663/UniTrade/api/middleware"
	"github.com/deorejayesh9663/UniTrade/api/responses"
	"github.com/deorejayesh9663/UniTrade/api/validators"
	"github.com/deorejayesh9663/UniTrade/internal/conversations"
	"github.com/deorejayesh9663/UniTrade/internal/messages"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
)

type openConversationPayload struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

type sendMessagePayload struct {
	Text string `json:"text" validate:"required"`
}

// ConversationOpen returns the buyer's conversation about an item, creating it
// on first contact.
func ConversationOpen(svc conversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversation service unavailable"))
			return
		}
		var body openConversationPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		conv, err := svc.FindOrCreate(ctx, middleware.PrincipalFromContext(ctx), body.ItemID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, conv)
	}
}

// ConversationsList returns the caller's buying and selling threads, most
// recently active first.
func ConversationsList(svc conversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversation service unavailable"))
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

func ConversationGet(svc conversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversation service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.Get(ctx, middleware.PrincipalFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func MessagesList(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		items, err := svc.List(ctx, middleware.PrincipalFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func MessageSend(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body sendMessagePayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		msg, err := svc.Append(ctx, middleware.PrincipalFromContext(ctx), id, body.Text)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}
