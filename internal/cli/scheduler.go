package cli // import "streamlance.app/internal/cli"

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"streamlance.app/internal/config"
	"streamlance.app/internal/runlock"
)

const (
	ingestJob   = "ingest"
	dispatchJob = "dispatch"
)

func (self *Daemon) runScheduler(ctx context.Context) error {
	slog.Info(`Starting background scheduler...`)

	jobs := []scheduledJob{{
		name: ingestJob,
		spec: config.Opts.IngestSchedule(),
		fn: func(ctx context.Context) error {
			_, err := self.pipeline.Run(ctx)
			return err
		},
	}}

	if self.dispatcher != nil {
		jobs = append(jobs, scheduledJob{
			name: dispatchJob,
			spec: config.Opts.DispatchSchedule(),
			fn: func(ctx context.Context) error {
				_, err := self.dispatcher.Dispatch(ctx, time.Now())
				return err
			},
		})
	}

	c, err := newScheduler(ctx, self.locker, jobs)
	if err != nil {
		return err
	}

	if config.Opts.RunOnStart() {
		self.g.Go(func() error {
			for _, job := range jobs {
				runJob(ctx, self.locker, job)
			}
			return nil
		})
	}

	c.Start()
	self.g.Go(func() error {
		<-ctx.Done()
		slog.Info("Waiting for scheduled jobs to complete...")
		<-c.Stop().Done()
		slog.Info("scheduler stopped", slog.Any("reason", context.Cause(ctx)))
		return nil
	})
	return nil
}

type scheduledJob struct {
	name string
	spec string
	fn   func(ctx context.Context) error
}

func newScheduler(ctx context.Context, locker runlock.Locker,
	jobs []scheduledJob,
) (*cron.Cron, error) {
	log := cronLogger{log: slog.Default().With(slog.String("component", "cron"))}
	c := cron.New(cron.WithLogger(log), cron.WithChain(cron.Recover(log)))
	for _, job := range jobs {
		_, err := c.AddFunc(job.spec, func() { runJob(ctx, locker, job) })
		if err != nil {
			return nil, fmt.Errorf("scheduler: add %s job %q: %w", job.name,
				job.spec, err)
		}
		slog.Info("Job scheduled", slog.String("job", job.name),
			slog.String("schedule", job.spec))
	}
	return c, nil
}

// runJob runs job unless another run of it is still in progress.
func runJob(ctx context.Context, locker runlock.Locker, job scheduledJob) {
	if ctx.Err() != nil {
		return
	}

	log := slog.With(slog.String("job", job.name))
	err := locker.Do(ctx, job.name, job.fn)
	switch {
	case errors.Is(err, runlock.ErrLocked):
		log.Warn("Previous run is still in progress, skip this one")
	case errors.Is(err, context.Canceled):
		log.Info("Job canceled")
	case err != nil:
		log.Error("Job failed", slog.Any("error", err))
	}
}

// cronLogger sends cron logs into slog.
type cronLogger struct {
	log *slog.Logger
}

var _ cron.Logger = cronLogger{}

func (self cronLogger) Info(msg string, keysAndValues ...any) {
	self.log.Debug(msg, keysAndValues...)
}

func (self cronLogger) Error(err error, msg string, keysAndValues ...any) {
	self.log.Error(msg, append(keysAndValues, slog.Any("error", err))...)
}
