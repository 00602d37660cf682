package middleware // import "streamlance.app/internal/http/middleware"

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"streamlance.app/internal/config"
	"streamlance.app/internal/http/mux"
	"streamlance.app/internal/http/request"
)

type MiddlewareFunc = mux.MiddlewareFunc

// ClientIP stores the real client address in the request context.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := request.FindClientIP(r, trustedProxy)
		next.ServeHTTP(w, r.WithContext(
			request.WithClientIP(r.Context(), clientIP)))
	})
}

func trustedProxy(ip string) bool {
	if config.Opts == nil {
		return false
	}
	return config.Opts.TrustedProxy(ip)
}

// Gzip compresses responses when the client accepts it.
func Gzip(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) }
