package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/channeldrive/channeldrive/internal/ctxkeys"
)

// Recover turns a handler panic into a 500 and logs it with the stack.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("panic in handler",
				"error", rec,
				"path", r.URL.Path,
				"request_id", ctxkeys.RequestID(r.Context()),
				"stack", string(debug.Stack()),
			)
			writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}
