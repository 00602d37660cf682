package logging // import "streamlance.app/internal/logging"

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

var ctxKeyLogger ctxKey = struct{}{}

func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKeyLogger).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, l)
}

// WithRun returns ctx with a logger tagged by the job name and run id.
func WithRun(ctx context.Context, job, runID string) context.Context {
	return With(ctx, slog.String("job", job), slog.String("run_id", runID))
}

// WithUser returns ctx with a logger tagged by the user.
func WithUser(ctx context.Context, userID int64, email string) context.Context {
	return With(ctx, slog.Int64("user_id", userID),
		slog.String("user_email", email))
}
