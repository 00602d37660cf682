package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"streamlance.app/internal/logging"
)

// WithPanic turns a panic of a handler into 500 Internal Server Error. The
// panic value isn't sent to the client.
func WithPanic(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			//nolint:errorlint // we are checking exactly ErrAbortHandler
			if err == http.ErrAbortHandler {
				// Aborts the response to the client and must not be logged.
				panic(err)
			}

			logging.FromContext(r.Context()).Error("request aborted with panic",
				slog.Any("reason", err),
				slog.String("stack", string(debug.Stack())))
			code := http.StatusInternalServerError
			http.Error(w, http.StatusText(code), code)
		}()
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}
