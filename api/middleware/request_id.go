package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/deorejayesh9663/UniTrade/api/responses"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
)

const maxRequestIDLen = 128

// RequestID tags the request with the caller's X-Request-Id when it is a
// safe token, minting a fresh one otherwise. The id is echoed on the
// response and attached to every log line for the request.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(responses.RequestIDHeader)
			if !validRequestID(reqID) {
				reqID = uuid.NewString()
			}

			w.Header().Set(responses.RequestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validRequestID keeps client ids to a bounded run of [A-Za-z0-9._-] so
// they cannot forge log fields or bloat headers.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
