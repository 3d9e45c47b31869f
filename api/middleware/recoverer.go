package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/deorejayesh9663/UniTrade/api/responses"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
)

// Recoverer turns a handler panic into a 500 INTERNAL_ERROR envelope. A
// panic with http.ErrAbortHandler is re-raised so net/http can drop the
// connection, and nothing is written once the handler has sent headers.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				err := fmt.Errorf("panic: %v", v)
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"panic":        fmt.Sprint(v),
						"method":       r.Method,
						"path":         r.URL.Path,
						"headers_sent": rec.status != 0,
						"stack":        string(debug.Stack()),
					})
					logg.Error(ctx, "panic.recovered", err)
				}
				if rec.status != 0 {
					return
				}
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
