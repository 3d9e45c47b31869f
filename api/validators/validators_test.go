package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
)

type sampleBody struct {
	Title string `json:"title" validate:"required,max=5"`
}

func TestDecodeJSONBody(t *testing.T) {
	var body sampleBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"desk"}`))
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, "desk", body.Title)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"a long title"}`))
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, map[string]string{"title": "must be at most 5"}, pkgerrors.As(err).Details())

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"desk","extra":1}`))
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}

func TestParseQueryDecimal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?max_price=12.50", nil)
	value, err := ParseQueryDecimal(req, "max_price")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.True(t, value.Equal(decimal.RequireFromString("12.5")))

	value, err = ParseQueryDecimal(httptest.NewRequest(http.MethodGet, "/", nil), "max_price")
	require.NoError(t, err)
	assert.Nil(t, value)

	_, err = ParseQueryDecimal(httptest.NewRequest(http.MethodGet, "/?max_price=cheap", nil), "max_price")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseUUIDParam(req, "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUIDParam(req, "missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
