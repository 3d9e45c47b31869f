package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"github.com/deorejayesh9663/UniTrade/pkg/types"
)

func TestRecovererAnswersInternalErrorEnvelope(t *testing.T) {
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("nil listing") })
	handler := RequestID(logger.Nop())(Recoverer(logger.Nop())(boom))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	assert.Equal(t, "internal server error", body.Error.Message)
	assert.NotContains(t, body.Error.Message, "nil listing")
	assert.True(t, body.Error.Retryable)
	assert.Equal(t, "req-42", body.RequestID)
}

func TestRecovererLeavesCommittedResponsesAlone(t *testing.T) {
	partial := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		panic("late failure")
	})
	rec := httptest.NewRecorder()

	Recoverer(nil)(partial).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestRecovererRepanicsOnAbortHandler(t *testing.T) {
	abort := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(http.ErrAbortHandler) })
	rec := httptest.NewRecorder()

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		Recoverer(nil)(abort).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
