package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/api/response"
)

// Recovery turns a handler panic into a 500. If the handler had already
// started the response (a status stream, for instance) the connection is
// left to close instead.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			attrs := []any{
				"error", err,
				"stack", string(debug.Stack()),
				"method", r.Method,
				"path", r.URL.Path,
			}
			if session, ok := GetSession(r); ok {
				attrs = append(attrs, "user_id", session.UserID)
			}
			slog.Error("panic recovered", attrs...)

			if rec.wroteHeader {
				return
			}
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "An unexpected error occurred", nil)
		}()
		next.ServeHTTP(rec, r)
	})
}
