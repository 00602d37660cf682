package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"streamlance.app/internal/logging"
)

const requestIdHeader = "X-Request-Id"

type ctxRequestId struct{}

var requestIdKey ctxRequestId = struct{}{}

// RequestId gives every request an unique id, which is returned in the
// X-Request-Id header and added to the context logger.
func RequestId(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(requestIdHeader, id)

		ctx := context.WithValue(r.Context(), requestIdKey, id)
		ctx = logging.With(ctx, slog.String("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	}
	return http.HandlerFunc(fn)
}

func RequestIdFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIdKey).(string); ok {
		return id
	}
	return ""
}
