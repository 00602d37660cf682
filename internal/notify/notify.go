// Package notify delivers digests of new postings to users by their
// category preferences.
package notify // import "streamlance.app/internal/notify"

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"streamlance.app/internal/logging"
	"streamlance.app/internal/mail"
	"streamlance.app/internal/metric"
	"streamlance.app/internal/model"
	"streamlance.app/internal/storage"
)

// DefaultLookback is the age of the oldest posting included into a digest.
const DefaultLookback = 2 * time.Hour

var ErrPanic = errors.New("notify: aborted with panic")

type Store interface {
	Recipients(ctx context.Context) ([]model.Recipient, error)
	PendingPostings(ctx context.Context, userID int64, categories []string,
		since time.Time) (model.Postings, error)
	RecordSent(ctx context.Context, userID int64, postingIDs []int64,
	) (int, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type Option func(d *Dispatcher)

// WithLookback sets the age of the oldest posting included into a digest.
func WithLookback(d time.Duration) Option {
	return func(self *Dispatcher) { self.lookback = d }
}

// WithRateLimit limits digests sent per second. Zero means no limit.
func WithRateLimit(perSecond float64) Option {
	return func(self *Dispatcher) {
		if perSecond > 0 {
			self.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			self.limiter = rate.NewLimiter(rate.Inf, 0)
		}
	}
}

func New(store Store, mailer Mailer, opts ...Option) *Dispatcher {
	self := &Dispatcher{
		store:    store,
		mailer:   mailer,
		lookback: DefaultLookback,
		limiter:  rate.NewLimiter(rate.Inf, 0),
	}
	for _, fn := range opts {
		fn(self)
	}
	return self
}

type Dispatcher struct {
	store    Store
	mailer   Mailer
	lookback time.Duration
	limiter  *rate.Limiter
}

// Result summarizes a dispatch run.
type Result struct {
	Recipients int
	Notified   int
	Failed     int
	Sent       int
	Users      []UserResult
}

// UserResult is the outcome of dispatch to a single user.
type UserResult struct {
	UserID     int64
	Candidates int
	Recorded   int
	Err        error
}

// Dispatch sends every active user with preferences one digest of postings
// published after asOf minus the lookback window and not sent to them
// before. Failure of one user doesn't affect the others. It returns an error
// only if recipients can't be listed, ctx was canceled, or it panicked.
func (self *Dispatcher) Dispatch(ctx context.Context, asOf time.Time,
) (result Result, err error) {
	ctx = logging.WithRun(ctx, "dispatch", uuid.NewString())
	ctx = storage.WithQueryStats(ctx)
	log := logging.FromContext(ctx)
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("dispatch run aborted with panic", slog.Any("reason", r),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		metric.DispatchRunDuration.WithLabelValues(metric.StatusOf(err)).
			Observe(time.Since(startTime).Seconds())
	}()

	recipients, err := self.store.Recipients(ctx)
	if err != nil {
		return result, fmt.Errorf("notify: %w", err)
	}

	since := asOf.Add(-self.lookback)
	log.Info("Starting dispatch run",
		slog.Int("recipients", len(recipients)), slog.Time("since", since))

	result.Recipients = len(recipients)
	result.Users = make([]UserResult, 0, len(recipients))
	for i := range recipients {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("notify: %w", err)
		}

		r := self.DispatchUser(ctx, &recipients[i], since)
		result.Users = append(result.Users, r)
		switch {
		case r.Err != nil:
			result.Failed++
		case r.Candidates > 0:
			result.Notified++
			result.Sent += r.Recorded
		}
	}

	log.Info("Dispatch run completed",
		slog.Int("recipients", result.Recipients),
		slog.Int("notified", result.Notified),
		slog.Int("failed", result.Failed),
		slog.Int("sent", result.Sent),
		slog.Any("storage", storage.QueryStatsFrom(ctx)),
		slog.Duration("elapsed", time.Since(startTime)))
	return result, nil
}

// DispatchUser sends a digest of postings published after since to a single
// recipient and records them as sent. Nothing is recorded if delivery
// failed, so the same postings are selected again next time.
func (self *Dispatcher) DispatchUser(ctx context.Context,
	recipient *model.Recipient, since time.Time,
) (result UserResult) {
	result.UserID = recipient.UserID
	ctx = logging.WithUser(ctx, recipient.UserID, recipient.Email)
	log := logging.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("dispatch to user aborted with panic",
				slog.Any("reason", r), slog.String("stack", string(debug.Stack())))
			result.Err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	postings, err := self.store.PendingPostings(ctx, recipient.UserID,
		recipient.Categories, since)
	if err != nil {
		log.Error("Unable fetch pending postings", slog.Any("error", err))
		result.Err = err
		return result
	}

	result.Candidates = len(postings)
	if len(postings) == 0 {
		log.Debug("No new postings for user",
			slog.Any("categories", recipient.Categories))
		return result
	}

	if err := self.send(ctx, recipient.Email, postings); err != nil {
		result.Err = err
		return result
	}

	recorded, err := self.store.RecordSent(ctx, recipient.UserID,
		postings.IDs())
	result.Recorded = recorded
	if err != nil {
		log.Error("Digest delivered, but not recorded",
			slog.Int("postings", len(postings)), slog.Any("error", err))
		result.Err = err
		return result
	}

	log.Info("Digest delivered",
		slog.Int("postings", len(postings)), slog.Int("recorded", recorded))
	return result
}

func (self *Dispatcher) send(ctx context.Context, to string,
	postings model.Postings,
) error {
	digest, err := RenderDigest(postings)
	if err != nil {
		return err
	}

	if err := self.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify: wait for send slot: %w", err)
	}

	err = self.mailer.Send(ctx, to, digest.Subject, digest.Body)
	metric.DigestsSent.WithLabelValues(metric.StatusOf(err)).Inc()
	if err != nil {
		logging.FromContext(ctx).Error("Unable deliver digest",
			slog.String("kind", mail.KindOf(err).String()),
			slog.Int("postings", len(postings)),
			slog.Any("error", err))
		return fmt.Errorf("notify: deliver digest: %w", err)
	}
	return nil
}
